package classifier

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

// GollemLabeler generates labels through a gollem LLM client
type GollemLabeler struct {
	client gollem.LLMClient
}

var _ LabelGenerator = (*GollemLabeler)(nil)

// NewGollemLabeler wraps an LLM client as a label generator
func NewGollemLabeler(client gollem.LLMClient) *GollemLabeler {
	return &GollemLabeler{client: client}
}

func (g *GollemLabeler) GenerateLabel(ctx context.Context, instruction, question string) (string, error) {
	session, err := g.client.NewSession(ctx,
		gollem.WithSessionSystemPrompt(instruction),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(question))
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate label from LLM")
	}
	if len(resp.Texts) == 0 {
		return "", goerr.New("empty LLM response")
	}

	return strings.TrimSpace(strings.Join(resp.Texts, "\n")), nil
}
