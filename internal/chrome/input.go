package chrome

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
)

// Click clicks on the first element matching a CSS selector.
func (c *Client) Click(ctx context.Context, targetID string, selector string) error {
	sessionID, err := c.attachToTarget(ctx, targetID)
	if err != nil {
		return err
	}

	nodeID, err := c.resolveNodeID(ctx, sessionID, selector)
	if err != nil {
		return err
	}

	p, err := c.getNodeCenter(ctx, sessionID, nodeID)
	if err != nil {
		return err
	}

	return c.dispatchMouseClick(ctx, sessionID, p)
}

// ClickText clicks the first visible element matching scope whose text
// contains text. Buttons in the apps we drive are only addressable by label.
func (c *Client) ClickText(ctx context.Context, targetID string, scope string, text string) error {
	sessionID, err := c.attachToTarget(ctx, targetID)
	if err != nil {
		return err
	}

	js := fmt.Sprintf(`(() => {
		const want = %s;
		for (const el of document.querySelectorAll(%s)) {
			if (!(el.textContent || '').includes(want)) continue;
			const style = getComputedStyle(el);
			if (style.display === 'none' || style.visibility === 'hidden') continue;
			el.scrollIntoView({block: 'center', inline: 'center'});
			const r = el.getBoundingClientRect();
			if (r.width === 0 || r.height === 0) continue;
			return {x: r.left + r.width / 2, y: r.top + r.height / 2};
		}
		return null;
	})()`, jsString(text), jsString(scope))

	result, err := c.Eval(ctx, targetID, js)
	if err != nil {
		return err
	}

	pos, ok := result.Value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%w: %s containing %q", ErrElementNotFound, scope, text)
	}
	x, _ := pos["x"].(float64)
	y, _ := pos["y"].(float64)

	return c.dispatchMouseClick(ctx, sessionID, Point{X: x, Y: y})
}

// Fill replaces the value of an input element with text.
func (c *Client) Fill(ctx context.Context, targetID string, selector string, text string) error {
	sessionID, err := c.attachToTarget(ctx, targetID)
	if err != nil {
		return err
	}

	nodeID, err := c.resolveNodeID(ctx, sessionID, selector)
	if err != nil {
		return err
	}

	_, err = c.CallSession(ctx, sessionID, "DOM.focus", dom.Focus().WithNodeID(nodeID))
	if err != nil {
		return fmt.Errorf("focusing element: %w", err)
	}

	// Select the current value so insertText replaces it and fires input events.
	_, err = c.Eval(ctx, targetID, fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (el && el.select) el.select();
	})()`, jsString(selector)))
	if err != nil {
		return fmt.Errorf("selecting input value: %w", err)
	}

	if text == "" {
		_, err = c.Eval(ctx, targetID, fmt.Sprintf(`(() => {
			const el = document.querySelector(%s);
			el.value = '';
			el.dispatchEvent(new Event('input', {bubbles: true}));
		})()`, jsString(selector)))
		if err != nil {
			return fmt.Errorf("clearing input value: %w", err)
		}
		return nil
	}

	_, err = c.CallSession(ctx, sessionID, "Input.insertText", input.InsertText(text))
	if err != nil {
		return fmt.Errorf("inserting text: %w", err)
	}

	return nil
}

// UploadFile sets files for a file input element. Chrome fires the input's
// change event itself.
func (c *Client) UploadFile(ctx context.Context, targetID string, selector string, files []string) error {
	sessionID, err := c.attachToTarget(ctx, targetID)
	if err != nil {
		return err
	}

	nodeID, err := c.resolveNodeID(ctx, sessionID, selector)
	if err != nil {
		return err
	}

	_, err = c.CallSession(ctx, sessionID, "DOM.setFileInputFiles",
		dom.SetFileInputFiles(files).WithNodeID(nodeID))
	if err != nil {
		return fmt.Errorf("setting files: %w", err)
	}

	return nil
}
