package transform

import (
	"context"
	"fmt"

	"github.com/docentkit/docentkit-backend/internal/modules/lesson/kit"
	"github.com/docentkit/docentkit-backend/internal/platform/openai"
)

// genRequest is one fully-specified generation attempt.
type genRequest struct {
	system string
	user   string
	opts   openai.GenerateOptions
}

// strategy derives the next attempt from the base request and the last raw
// output. Strategies are tried in order under one shared attempt budget.
type strategy struct {
	name   string
	mutate func(base genRequest, lastRaw string) genRequest
}

func zeroTemp() *float64 {
	t := 0.0
	return &t
}

// recoveryLadder is the ordered escalation for malformed output: stricter
// instructions, then deterministic sampling, then model self-repair, then a
// deliberately smaller kit to dodge output truncation.
func recoveryLadder() []strategy {
	return []strategy{
		{
			name: "strict-json",
			mutate: func(base genRequest, _ string) genRequest {
				r := base
				r.user += "\n\nBELANGRIJK: antwoord met UITSLUITEND geldige JSON. Geen tekst ervoor of erna, geen code fences."
				return r
			},
		},
		{
			name: "zero-temperature",
			mutate: func(base genRequest, _ string) genRequest {
				r := base
				r.user += "\n\nAntwoord met uitsluitend geldige JSON."
				r.opts.Temperature = zeroTemp()
				return r
			},
		},
		{
			name: "self-repair",
			mutate: func(base genRequest, lastRaw string) genRequest {
				r := base
				r.user = "De vorige poging leverde ongeldige JSON op. Herstel dit tot een geldig JSON-object met exact dezelfde structuur en inhoud:\n\n" + snippet(lastRaw, 6000)
				r.opts.Temperature = zeroTemp()
				return r
			},
		},
		{
			name: "reduced-size",
			mutate: func(base genRequest, _ string) genRequest {
				r := base
				r.user += "\n\nLever een COMPACTE versie: maximaal 8 script-items, maximaal 2 discussievragen, maximaal 3 oefeningen, korte zinnen. Uitsluitend geldige JSON."
				r.opts.Temperature = zeroTemp()
				return r
			},
		},
	}
}

// generateKit runs the base attempt and then the recovery ladder until a
// parseable kit appears or the budget runs out. Attempts are sequential so
// prompt/response pairing stays unambiguous. On exhaustion it fails loud
// with a snippet of the last raw output; no canned kit is substituted.
func generateKit(ctx context.Context, ai openai.Client, base genRequest, budget int, log func(string)) (kit.Kit, int, error) {
	if budget <= 0 {
		budget = 1 + len(recoveryLadder())
	}

	attempts := 0
	lastRaw := ""
	var lastErr error

	try := func(name string, req genRequest) (kit.Kit, bool) {
		attempts++
		log(fmt.Sprintf("generation attempt %d (%s)", attempts, name))
		raw, err := ai.Generate(ctx, req.system, req.user, req.opts)
		if err != nil {
			lastErr = err
			return kit.Kit{}, false
		}
		lastRaw = raw
		k, err := parseKitJSON(raw)
		if err != nil {
			lastErr = err
			return kit.Kit{}, false
		}
		return k, true
	}

	if k, ok := try("initial", base); ok {
		return k, attempts, nil
	}
	for _, s := range recoveryLadder() {
		if attempts >= budget {
			break
		}
		if ctx.Err() != nil {
			return kit.Kit{}, attempts, ctx.Err()
		}
		if k, ok := try(s.name, s.mutate(base, lastRaw)); ok {
			return k, attempts, nil
		}
	}

	return kit.Kit{}, attempts, fmt.Errorf(
		"generation failed after %d attempts: %w (last output: %q)",
		attempts, lastErr, snippet(lastRaw, 400),
	)
}
