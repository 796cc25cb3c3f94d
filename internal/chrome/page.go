package chrome

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/runtime"
)

// Eval evaluates a JavaScript expression in a target's page context.
func (c *Client) Eval(ctx context.Context, targetID string, expression string) (*EvalResult, error) {
	sessionID, err := c.attachToTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	// Enable Runtime domain
	_, err = c.CallSession(ctx, sessionID, "Runtime.enable", runtime.Enable())
	if err != nil {
		return nil, fmt.Errorf("enabling Runtime domain: %w", err)
	}

	evalResult, err := c.CallSession(ctx, sessionID, "Runtime.evaluate",
		runtime.Evaluate(expression).
			WithReturnByValue(true).
			WithAllowUnsafeEvalBlockedByCSP(true))
	if err != nil {
		return nil, fmt.Errorf("evaluating expression: %w", err)
	}

	var evalResp struct {
		Result struct {
			Type  string      `json:"type"`
			Value interface{} `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text      string `json:"text"`
			Exception *struct {
				Description string `json:"description"`
			} `json:"exception"`
		} `json:"exceptionDetails"`
	}
	if err := json.Unmarshal(evalResult, &evalResp); err != nil {
		return nil, fmt.Errorf("parsing eval response: %w", err)
	}

	if d := evalResp.ExceptionDetails; d != nil {
		if d.Exception != nil && d.Exception.Description != "" {
			return nil, fmt.Errorf("JS exception: %s", d.Exception.Description)
		}
		return nil, fmt.Errorf("JS exception: %s", d.Text)
	}

	return &EvalResult{
		Value: evalResp.Result.Value,
		Type:  evalResp.Result.Type,
	}, nil
}

// SetViewport sets the browser viewport size.
func (c *Client) SetViewport(ctx context.Context, targetID string, width, height int) error {
	sessionID, err := c.attachToTarget(ctx, targetID)
	if err != nil {
		return err
	}

	_, err = c.CallSession(ctx, sessionID, "Emulation.setDeviceMetricsOverride",
		emulation.SetDeviceMetricsOverride(int64(width), int64(height), 1, false))
	if err != nil {
		return fmt.Errorf("setting viewport: %w", err)
	}

	return nil
}

// TableRows returns the trimmed innerText of the data cells (td) in each
// element matching rowSelector. Header cells are skipped.
func (c *Client) TableRows(ctx context.Context, targetID string, rowSelector string) ([][]string, error) {
	result, err := c.Eval(ctx, targetID, fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).map(
		row => Array.from(row.querySelectorAll('td')).map(cell => (cell.innerText || '').trim())
	)`, jsString(rowSelector)))
	if err != nil {
		return nil, err
	}

	raw, ok := result.Value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected table result type %T", result.Value)
	}

	rows := make([][]string, 0, len(raw))
	for _, r := range raw {
		cells, _ := r.([]interface{})
		row := make([]string, 0, len(cells))
		for _, cell := range cells {
			s, _ := cell.(string)
			row = append(row, s)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
