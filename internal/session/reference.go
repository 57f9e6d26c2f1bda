package session

import "regexp"

// Whole-word matching keeps "somewhere" from reading as "here" and
// "submit" from reading as "it".
var (
	placeRefRe  = regexp.MustCompile(`(?i)\b(there|here|that (?:site|page|url|place)|the same (?:site|page|url|place))\b`)
	objectRefRe = regexp.MustCompile(`(?i)\b(it|them|that|those|the same (?:thing|ones?))\b`)
	// A repeat must be the whole utterance (bar politeness): "again" riding
	// on a full command is part of that command, not a repeat request.
	repeatRe = regexp.MustCompile(`(?i)^\s*(?:please\s+)?(do (?:it|that) again|repeat(?: that| it)?|retry|try again|again|once more|one more time|same as (?:before|last time))(?:[,\s]+please)?[\s.!?]*$`)
)

// HasPlaceReference reports a pronoun reference to a prior location/URL.
func HasPlaceReference(text string) bool {
	return placeRefRe.MatchString(text)
}

// HasObjectReference reports a pronoun reference to a prior action object.
func HasObjectReference(text string) bool {
	return objectRefRe.MatchString(text)
}

// IsRepeatCommand reports a request to re-run the last readied mission.
func IsRepeatCommand(text string) bool {
	return repeatRe.MatchString(text)
}
