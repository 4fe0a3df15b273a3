package llama

import (
	"bufio"
	"context"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/seiri-lab/mathrag/pkg/domain/model"
	"github.com/seiri-lab/mathrag/pkg/utils/safe"
)

// Stream generates an answer incrementally. The returned channel yields
// text fragments in order and is closed after a final fragment with Done
// set, or one carrying Err when the stream fails mid-way.
func (c *Client) Stream(ctx context.Context, prompt string, cfg model.GenerationConfig) (<-chan model.StreamFragment, error) {
	resp, err := c.send(ctx, prompt, cfg, true)
	if err != nil {
		return nil, err
	}

	ch := make(chan model.StreamFragment, streamBuffer)

	go func() {
		defer close(ch)
		defer safe.Close(ctx, resp.Body)

		emit := func(frag model.StreamFragment) bool {
			select {
			case ch <- frag:
				return true
			case <-ctx.Done():
				return false
			}
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var chunk generateResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				// Malformed lines are skipped rather than aborting the stream
				continue
			}

			if chunk.Done {
				emit(model.StreamFragment{Text: chunk.Response, Done: true})
				return
			}
			if !emit(model.StreamFragment{Text: chunk.Response}) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			emit(model.StreamFragment{Err: goerr.Wrap(err, "stream read failed"), Done: true})
			return
		}
		// Server closed the stream without a done marker
		emit(model.StreamFragment{Done: true})
	}()

	return ch, nil
}
