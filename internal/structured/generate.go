package structured

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohammad-safakhou/threader/models"
)

// Generator is the slice of the LLM provider this package needs.
type Generator interface {
	Generate(ctx context.Context, prompt models.Prompt) (string, error)
}

// Generate asks the model for a value matching schema and decodes it into out.
// When the reply does not parse, the request is repeated up to retries times with
// a stricter instruction quoting the rejected reply. Transport errors are returned
// immediately and never retried. The last raw reply is returned in every case.
func Generate(ctx context.Context, gen Generator, prompt models.Prompt, schema *Schema, retries int, out any) (string, error) {
	prompt.Format = schema.Format()
	attempt := prompt
	var raw string
	for i := 0; ; i++ {
		var err error
		raw, err = gen.Generate(ctx, attempt)
		if err != nil {
			return raw, err
		}
		err = schema.Decode(raw, out)
		if err == nil {
			return raw, nil
		}
		var pe *ParseError
		if !errors.As(err, &pe) || i >= retries {
			return raw, err
		}
		attempt = prompt
		attempt.User = Stricter(prompt.User, raw, pe.Cause)
	}
}

// Stricter appends a correction request to a user prompt after a rejected reply.
func Stricter(user, rejected string, cause error) string {
	return fmt.Sprintf(`%s

Your previous reply could not be used (%v). It was:
<<<
%s
>>>
Reply again with ONLY a single JSON value that matches the requested schema. No prose, no markdown fences.`, user, cause, rejected)
}
