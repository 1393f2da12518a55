package turn

import (
	"context"

	"github.com/haasonsaas/agentcore/internal/cancel"
	"github.com/haasonsaas/agentcore/internal/convo"
	"github.com/haasonsaas/agentcore/internal/providers"
)

// runLeg drives one provider round-trip (spec.md §4.7 steps 4b-4e):
// either a real stream or a one-shot complete_with_model call treated as
// a single-frame stream, forwarding every delta as it arrives and
// watching token for cancellation concurrently with the provider's
// output. It returns the assembled assistant message, usage (if the
// provider reported it), whether the leg was cut short by cancellation,
// and any hard provider error.
func (d *Driver) runLeg(ctx context.Context, token *cancel.Token, provider providers.LLMProvider, req providers.Request, wantStream bool, assistantMsgID string, events chan<- Event) (*convo.Message, *providers.Usage, bool, error) {
	if wantStream && provider.SupportsStreaming(req.Model) {
		return d.runStreamingLeg(ctx, token, provider, req, assistantMsgID, events)
	}
	final, usage, cancelled, err := d.runOneShotLeg(ctx, token, provider, req)
	if final != nil {
		for i := range final.Content {
			part := final.Content[i]
			if part.Type == convo.PartText || part.Type == convo.PartThinking {
				events <- deltaEvent(assistantMsgID, &part)
			}
		}
	}
	return final, usage, cancelled, err
}

func (d *Driver) runStreamingLeg(ctx context.Context, token *cancel.Token, provider providers.LLMProvider, req providers.Request, assistantMsgID string, events chan<- Event) (*convo.Message, *providers.Usage, bool, error) {
	stream, err := provider.Stream(ctx, req)
	if err != nil {
		return nil, nil, false, err
	}

	var final *convo.Message
	var usage *providers.Usage
	for {
		select {
		case <-token.Context().Done():
			return nil, nil, true, nil
		case ev, ok := <-stream:
			if !ok {
				return final, usage, false, nil
			}
			if ev.Err != nil {
				return nil, nil, false, ev.Err
			}
			if ev.Delta != nil {
				events <- deltaEvent(assistantMsgID, ev.Delta)
			}
			if ev.Message != nil {
				final = ev.Message
			}
			if ev.Usage != nil {
				usage = ev.Usage
			}
		}
	}
}

func (d *Driver) runOneShotLeg(ctx context.Context, token *cancel.Token, provider providers.LLMProvider, req providers.Request) (*convo.Message, *providers.Usage, bool, error) {
	type result struct {
		msg   convo.Message
		usage providers.Usage
		err   error
	}
	done := make(chan result, 1)
	go func() {
		msg, usage, err := provider.CompleteWithModel(ctx, req)
		done <- result{msg: msg, usage: usage, err: err}
	}()

	select {
	case <-token.Context().Done():
		return nil, nil, true, nil
	case r := <-done:
		if r.err != nil {
			return nil, nil, false, r.err
		}
		usage := r.usage.Normalize()
		return &r.msg, &usage, false, nil
	}
}

func deltaEvent(assistantMsgID string, delta *convo.Part) Event {
	kind := EventMessage
	if delta.Type == convo.PartThinking {
		kind = EventThinking
	}
	return Event{Kind: kind, MessageID: assistantMsgID, Delta: delta}
}
