// Package featureflags gates optional hardening of the social graph.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Known flags. Every flag is off unless configured.
const (
	// StrictFriendAccept makes accept fail with NO_PENDING_REQUEST when the
	// requester never sent a request.
	StrictFriendAccept = "strict_friend_accept"
	// MergeCrossedRequests turns a friend request into an accept when the
	// target already has a pending request to the sender.
	MergeCrossedRequests = "merge_crossed_requests"
)

// Checker is the read side of Manager used by services.
type Checker interface {
	Enabled(name string, userID uint) bool
}

// Manager evaluates flags from a list such as
// "strict_friend_accept=on,merge_crossed_requests=25%".
type Manager struct {
	flags map[string]string
}

// NewManager parses raw. Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	flags := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		flags[key] = value
	}
	return &Manager{flags: flags}
}

// Enabled accepts on/true/1, off/false/0 and N% rollouts bucketed per user.
// A nil Manager reports every flag off.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	switch {
	case err != nil || pct <= 0:
		return false
	case pct >= 100:
		return true
	case userID == 0:
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// Raw returns a copy of the configured values.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string)
	if m == nil {
		return out
	}
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Snapshot evaluates the known flags plus any configured ones for userID.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := map[string]bool{
		StrictFriendAccept:   m.Enabled(StrictFriendAccept, userID),
		MergeCrossedRequests: m.Enabled(MergeCrossedRequests, userID),
	}
	for name := range m.Raw() {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

// Names lists the configured flag names in order.
func (m *Manager) Names() []string {
	raw := m.Raw()
	names := make([]string, 0, len(raw))
	for k := range raw {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), userID)
	return int(h.Sum32() % 100)
}
