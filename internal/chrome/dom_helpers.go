package chrome

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
)

// queryNodeID returns the node ID of the first element matching selector,
// or 0 when nothing matches.
func (c *Client) queryNodeID(ctx context.Context, sessionID string, selector string) (cdp.NodeID, error) {
	_, err := c.CallSession(ctx, sessionID, "DOM.enable", dom.Enable())
	if err != nil {
		return 0, fmt.Errorf("enabling DOM domain: %w", err)
	}

	docResult, err := c.CallSession(ctx, sessionID, "DOM.getDocument", dom.GetDocument())
	if err != nil {
		return 0, fmt.Errorf("getting document: %w", err)
	}

	var docResp struct {
		Root struct {
			NodeID cdp.NodeID `json:"nodeId"`
		} `json:"root"`
	}
	if err := json.Unmarshal(docResult, &docResp); err != nil {
		return 0, fmt.Errorf("parsing document response: %w", err)
	}

	queryResult, err := c.CallSession(ctx, sessionID, "DOM.querySelector",
		dom.QuerySelector(docResp.Root.NodeID, selector))
	if err != nil {
		return 0, fmt.Errorf("querying selector: %w", err)
	}

	var queryResp dom.QuerySelectorReturns
	if err := json.Unmarshal(queryResult, &queryResp); err != nil {
		return 0, fmt.Errorf("parsing query response: %w", err)
	}

	return queryResp.NodeID, nil
}

// resolveNodeID is queryNodeID that fails with ErrElementNotFound on no match.
func (c *Client) resolveNodeID(ctx context.Context, sessionID string, selector string) (cdp.NodeID, error) {
	nodeID, err := c.queryNodeID(ctx, sessionID, selector)
	if err != nil {
		return 0, err
	}
	if nodeID == 0 {
		return 0, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return nodeID, nil
}

// getNodeCenter scrolls a node into view and returns its center coordinates.
func (c *Client) getNodeCenter(ctx context.Context, sessionID string, nodeID cdp.NodeID) (Point, error) {
	// Older targets reject scrollIntoViewIfNeeded; the box model is still usable.
	c.CallSession(ctx, sessionID, "DOM.scrollIntoViewIfNeeded", dom.ScrollIntoViewIfNeeded().WithNodeID(nodeID))

	boxResult, err := c.CallSession(ctx, sessionID, "DOM.getBoxModel", dom.GetBoxModel().WithNodeID(nodeID))
	if err != nil {
		return Point{}, fmt.Errorf("getting box model: %w", err)
	}

	var boxResp dom.GetBoxModelReturns
	if err := json.Unmarshal(boxResult, &boxResp); err != nil {
		return Point{}, fmt.Errorf("parsing box model response: %w", err)
	}

	if boxResp.Model == nil || len(boxResp.Model.Content) < 8 {
		return Point{}, fmt.Errorf("invalid box model")
	}

	q := boxResp.Model.Content
	return Point{
		X: (q[0] + q[2] + q[4] + q[6]) / 4,
		Y: (q[1] + q[3] + q[5] + q[7]) / 4,
	}, nil
}

// dispatchMouseClick dispatches mouseMoved, mousePressed, and mouseReleased events.
func (c *Client) dispatchMouseClick(ctx context.Context, sessionID string, p Point) error {
	_, err := c.CallSession(ctx, sessionID, "Input.dispatchMouseEvent",
		input.DispatchMouseEvent(input.MouseMoved, p.X, p.Y))
	if err != nil {
		return fmt.Errorf("dispatching mouseMoved: %w", err)
	}

	_, err = c.CallSession(ctx, sessionID, "Input.dispatchMouseEvent",
		input.DispatchMouseEvent(input.MousePressed, p.X, p.Y).WithButton(input.Left).WithClickCount(1))
	if err != nil {
		return fmt.Errorf("dispatching mousePressed: %w", err)
	}

	_, err = c.CallSession(ctx, sessionID, "Input.dispatchMouseEvent",
		input.DispatchMouseEvent(input.MouseReleased, p.X, p.Y).WithButton(input.Left).WithClickCount(1))
	if err != nil {
		return fmt.Errorf("dispatching mouseReleased: %w", err)
	}

	return nil
}
