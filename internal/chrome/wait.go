package chrome

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const pollInterval = 100 * time.Millisecond

// poll calls check until it reports done, the deadline passes, or ctx ends.
// Protocol errors are retried: a page mid-navigation has no document or
// execution context for a moment.
func poll(ctx context.Context, timeout time.Duration, what string, check func() (bool, error)) error {
	deadline := time.Now().Add(timeout)

	for {
		done, err := check()
		if err != nil && !errors.Is(err, ErrProtocolError) {
			return err
		}
		if done {
			return nil
		}

		if time.Now().After(deadline) {
			return newTimeout("%s", what)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
			// Continue polling
		}
	}
}

// WaitFor waits for an element matching the selector to appear.
func (c *Client) WaitFor(ctx context.Context, targetID string, selector string, timeout time.Duration) error {
	sessionID, err := c.attachToTarget(ctx, targetID)
	if err != nil {
		return err
	}

	return poll(ctx, timeout, "selector "+selector, func() (bool, error) {
		nodeID, err := c.queryNodeID(ctx, sessionID, selector)
		if err != nil {
			return false, err
		}
		return nodeID != 0, nil
	})
}

// WaitForText waits for text to appear anywhere in the page body.
func (c *Client) WaitForText(ctx context.Context, targetID string, text string, timeout time.Duration) error {
	expr := fmt.Sprintf("!!document.body && document.body.innerText.includes(%s)", jsString(text))
	return c.waitForExpression(ctx, targetID, expr, timeout, fmt.Sprintf("text %q", text))
}

// WaitForElementText waits for an element matching scope whose text contains text.
func (c *Client) WaitForElementText(ctx context.Context, targetID string, scope string, text string, timeout time.Duration) error {
	expr := fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).some(el => (el.textContent || '').includes(%s))`,
		jsString(scope), jsString(text))
	return c.waitForExpression(ctx, targetID, expr, timeout, fmt.Sprintf("%s containing %q", scope, text))
}

// WaitForURL waits until the page location equals url exactly.
func (c *Client) WaitForURL(ctx context.Context, targetID string, url string, timeout time.Duration) error {
	expr := fmt.Sprintf("location.href === %s", jsString(url))
	return c.waitForExpression(ctx, targetID, expr, timeout, "URL "+url)
}

func (c *Client) waitForExpression(ctx context.Context, targetID string, expression string, timeout time.Duration, what string) error {
	return poll(ctx, timeout, what, func() (bool, error) {
		result, err := c.Eval(ctx, targetID, expression)
		if err != nil {
			return false, err
		}
		return isTruthy(result.Value), nil
	})
}
