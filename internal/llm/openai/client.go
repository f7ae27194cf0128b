package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tanipaint/chirashi-extraction/internal/common"
	"github.com/tanipaint/chirashi-extraction/internal/extractor"
	"github.com/tanipaint/chirashi-extraction/internal/llm"
)

// RefineMatches implements extractor.Refiner using text-only chat/completions.
// Every failure mode comes back wrapped in common.ErrRefinement so the caller
// can fall back to the geometric matches.
func (c *Client) RefineMatches(ctx context.Context, req extractor.RefineRequest) ([]extractor.RefinedMatch, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.refine.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(req.FullText),
		"matches", len(req.Matches),
	)

	hints := make([]llm.MatchHint, 0, len(req.Matches))
	for _, m := range req.Matches {
		hints = append(hints, llm.MatchHint{
			Product:         m.Product.Text,
			Price:           m.Price.Value,
			SpatialDistance: m.AdjustedDistance,
		})
	}

	schema := llm.BuildRefinementJSONSchema()
	sys := llm.BuildRefineSystemPrompt()
	user := llm.BuildRefineUserPrompt(llm.RefineRequest{FullText: req.FullText, Matches: hints})

	content, err := c.complete(ctx, rid, schema, sys, user)
	if err != nil {
		return nil, common.NewAppError("REFINEMENT_ERROR", "chat completion failed", fmt.Errorf("%w: %w", common.ErrRefinement, err))
	}

	// Validate strictly first; on failure try a lenient sanitize and re-validate.
	if vErr := llm.ValidateJSONAgainstSchema(schema, content); vErr != nil {
		cleaned, notes, sErr := llm.SanitizeRefinement(content)
		if sErr != nil {
			c.logger.Error("llm.refine.sanitize_failed",
				"req_id", rid, "error", sErr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil, common.NewAppError("REFINEMENT_ERROR", "sanitize failed", fmt.Errorf("%w: %w", common.ErrRefinement, sErr))
		}
		if vErr2 := llm.ValidateJSONAgainstSchema(schema, cleaned); vErr2 != nil {
			c.logger.Error("llm.refine.schema_validation_failed",
				"req_id", rid, "error", vErr2, "content", string(content),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil, common.NewAppError("REFINEMENT_ERROR", "schema validation failed", fmt.Errorf("%w: %w", common.ErrRefinement, vErr2))
		}
		c.logger.Warn("llm.refine.lenient_sanitize_applied",
			"req_id", rid, "notes", notes,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		content = cleaned
	}

	var payload llm.RefinementPayload
	if err := json.Unmarshal(content, &payload); err != nil {
		return nil, common.NewAppError("REFINEMENT_ERROR", "unmarshal payload", fmt.Errorf("%w: %w", common.ErrRefinement, err))
	}

	out := make([]extractor.RefinedMatch, 0, len(payload.Products))
	for _, p := range payload.Products {
		out = append(out, extractor.RefinedMatch{
			Product:         p.Product.Text,
			Price:           p.Price.PriceValue,
			SpatialDistance: p.SpatialDistance,
		})
	}

	c.logger.Info("llm.refine.ok",
		"req_id", rid,
		"pairs", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// ClassifyProduct implements llm.Classifier against a fixed taxonomy.
func (c *Client) ClassifyProduct(ctx context.Context, product string, allowed []string) (string, error) {
	rid := uuid.New().String()

	schema := llm.BuildCategoryJSONSchema(allowed)
	sys := llm.BuildCategorySystemPrompt(allowed)
	user := "Product name: " + product

	content, err := c.complete(ctx, rid, schema, sys, user)
	if err != nil {
		return "", fmt.Errorf("classify product: %w", err)
	}
	if vErr := llm.ValidateJSONAgainstSchema(schema, content); vErr != nil {
		c.logger.Error("llm.classify.schema_validation_failed", "req_id", rid, "error", vErr, "content", string(content))
		return "", fmt.Errorf("classify product: %w", vErr)
	}

	var out struct {
		Category string `json:"category"`
	}
	if err := json.Unmarshal(content, &out); err != nil {
		return "", fmt.Errorf("classify product: %w", err)
	}
	c.logger.Info("llm.classify.ok", "req_id", rid, "product", product, "category", out.Category)
	return out.Category, nil
}

// complete runs one chat/completions round and returns the first choice's
// message content.
func (c *Client) complete(ctx context.Context, rid string, schema map[string]any, sys, user string) ([]byte, error) {
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": sys},
			{"role": "user", "content": user + "\n\nReturn ONLY JSON that matches the provided schema."},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, _, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		return nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return nil, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.no_choices", "req_id", rid, "raw", string(raw))
		return nil, fmt.Errorf("no choices in openai response")
	}
	return []byte(strings.TrimSpace(cc.Choices[0].Message.Content)), nil
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
