// Package hypr queries the Hyprland compositor for its monitor layout.
package hypr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var (
	// ErrNoMonitors is returned when hyprctl reports no outputs.
	ErrNoMonitors = errors.New("no monitors found via hyprctl")
	// ErrMonitorNotFound is returned when a named output does not exist.
	ErrMonitorNotFound = errors.New("monitor not found via hyprctl")
)

// Monitor is one compositor output.
type Monitor struct {
	Name        string  `json:"name"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	RefreshRate float64 `json:"refreshRate"`
	Focused     bool    `json:"focused"`
}

// Area is width times height.
func (m Monitor) Area() int { return m.Width * m.Height }

// Client runs hyprctl.
type Client struct {
	binary string
}

// NewClient returns a client for the given hyprctl binary.
func NewClient(binary string) *Client {
	if strings.TrimSpace(binary) == "" {
		binary = "hyprctl"
	}
	return &Client{binary: binary}
}

// Monitors lists all outputs.
func (c *Client) Monitors(ctx context.Context) ([]Monitor, error) {
	cmd := exec.CommandContext(ctx, c.binary, "monitors", "-j")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%s not found in PATH; are you running Hyprland? %w", c.binary, err)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		return nil, fmt.Errorf("hyprctl monitors: %w: %s", err, msg)
	}
	var monitors []Monitor
	if err := json.Unmarshal(stdout.Bytes(), &monitors); err != nil {
		return nil, fmt.Errorf("parse hyprctl monitors: %w", err)
	}
	return monitors, nil
}

// Monitor looks up one output by name.
func (c *Client) Monitor(ctx context.Context, name string) (Monitor, error) {
	monitors, err := c.Monitors(ctx)
	if err != nil {
		return Monitor{}, err
	}
	for _, m := range monitors {
		if m.Name == name {
			return m, nil
		}
	}
	return Monitor{}, fmt.Errorf("%w: %q", ErrMonitorNotFound, name)
}

// Resolution returns the pixel size of a named output.
func (c *Client) Resolution(ctx context.Context, name string) (int, int, error) {
	m, err := c.Monitor(ctx, name)
	if err != nil {
		return 0, 0, err
	}
	if m.Width <= 0 || m.Height <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution for monitor %q: %dx%d", name, m.Width, m.Height)
	}
	return m.Width, m.Height, nil
}

// PickReference chooses the focused monitor, else the largest by area.
// Ties on area keep the earlier monitor.
func PickReference(monitors []Monitor) (Monitor, bool) {
	if len(monitors) == 0 {
		return Monitor{}, false
	}
	for _, m := range monitors {
		if m.Focused {
			return m, true
		}
	}
	best := monitors[0]
	for _, m := range monitors[1:] {
		if m.Area() > best.Area() {
			best = m
		}
	}
	return best, true
}

// ReferenceResolution returns the size of preferred when it exists, otherwise
// that of the reference pick.
func (c *Client) ReferenceResolution(ctx context.Context, preferred string) (Monitor, error) {
	monitors, err := c.Monitors(ctx)
	if err != nil {
		return Monitor{}, err
	}
	if preferred != "" {
		for _, m := range monitors {
			if m.Name == preferred && m.Width > 0 && m.Height > 0 {
				return m, nil
			}
		}
	}
	ref, ok := PickReference(monitors)
	if !ok {
		return Monitor{}, ErrNoMonitors
	}
	return ref, nil
}
