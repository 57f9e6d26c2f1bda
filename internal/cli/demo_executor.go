package cli

import (
	"context"
	"fmt"
	"time"

	"aide/internal/dispatch"
	"aide/internal/mission"
)

// demoExecutor is a stand-in execution collaborator for the interactive
// shell. It emits plausible signals and one HTML artifact per mission so
// approval, whiteboard and chaining questions can be exercised without a
// real browser.
type demoExecutor struct{}

func (demoExecutor) Execute(ctx context.Context, p mission.Proposal) (dispatch.Outcome, error) {
	select {
	case <-ctx.Done():
		return dispatch.Outcome{}, ctx.Err()
	case <-time.After(300 * time.Millisecond):
	}

	source := p.Fields.SourceURL
	if source == "" {
		source = p.Fields.ActionTarget
	}

	page := fmt.Sprintf(`<html><head><title>%s</title></head><body>
<h1>Results for %s</h1>
<ul><li>alice@example.com</li><li>bob@example.com</li></ul>
<a href="https://%s/about">about</a>
</body></html>`, source, p.Fields.ActionObject, source)

	return dispatch.Outcome{
		Signals: []mission.Signal{
			{Type: "navigation", Source: "demo", Summary: "opened " + source},
			{Type: "extraction", Source: "demo", Summary: "collected 2 " + p.Fields.ActionObject},
		},
		Artifacts: []mission.Artifact{
			{Type: "html", PayloadRef: "demo://" + source, Payload: page},
		},
	}, nil
}
