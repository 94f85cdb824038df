// Package audit keeps a tamper-evident log of every governance event.
// Entries form a hash chain: each entry's hash covers its own fields plus
// the previous entry's hash, so any mutation breaks verification from
// that point forward.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/triage-ai/warden/internal/config"
)

// Entry type tags.
const (
	TypeActionReceived    = "action_received"
	TypeRiskAssessed      = "risk_assessed"
	TypeDecisionMade      = "decision_made"
	TypeQueuedApproval    = "queued_approval"
	TypeApproved          = "approved"
	TypeRejected          = "rejected"
	TypeExecuted          = "executed"
	TypeExecutionFailed   = "execution_failed"
	TypeRolledBack        = "rolled_back"
	TypeBoundaryViolation = "boundary_violation"
	TypeEscalated         = "escalated"
)

type Entry struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	Type         string         `json:"type"`
	ActionID     string         `json:"actionId,omitempty"`
	DecisionID   string         `json:"decisionId,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
	PreviousHash string         `json:"previousHash"`
	Hash         string         `json:"hash"`
}

// VerifyResult reports the outcome of a chain walk. FirstBroken is the
// index of the first entry whose hash does not verify, or -1 when the
// chain is intact.
type VerifyResult struct {
	Valid       bool `json:"valid"`
	Entries     int  `json:"entries"`
	FirstBroken int  `json:"firstBroken"`
}

// Log is an append-only in-memory hash chain with retention pruning.
// Appends are serialized; a pruned prefix does not invalidate the chain
// because each remaining entry still carries its recorded previousHash.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	cfg     config.AuditConfig
	now     func() time.Time
	logger  *zap.Logger
}

func NewLog(cfg config.AuditConfig, logger *zap.Logger) *Log {
	return &Log{
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}
}

// Append records a new entry and returns it with hash fields populated.
func (l *Log) Append(entryType, actionID, decisionID string, payload map[string]any) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := ""
	if n := len(l.entries); n > 0 {
		prev = l.entries[n-1].Hash
	}

	e := Entry{
		ID:           uuid.NewString(),
		Timestamp:    l.now().UTC(),
		Type:         entryType,
		ActionID:     actionID,
		DecisionID:   decisionID,
		Payload:      payload,
		PreviousHash: prev,
	}
	e.Hash = hashEntry(e)

	l.entries = append(l.entries, e)
	l.pruneLocked()
	return e
}

func hashEntry(e Entry) string {
	payloadJSON, err := json.Marshal(e.Payload)
	if err != nil {
		payloadJSON = []byte("{}")
	}
	var b strings.Builder
	b.WriteString(e.ID)
	b.WriteByte('|')
	b.WriteString(e.Timestamp.Format(time.RFC3339Nano))
	b.WriteByte('|')
	b.WriteString(e.Type)
	b.WriteByte('|')
	b.WriteString(e.ActionID)
	b.WriteByte('|')
	b.WriteString(e.DecisionID)
	b.WriteByte('|')
	b.Write(payloadJSON)
	b.WriteByte('|')
	b.WriteString(e.PreviousHash)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// pruneLocked drops entries older than the retention window, then trims
// the oldest entries beyond the size cap. The caller holds the mutex.
func (l *Log) pruneLocked() {
	if l.cfg.RetentionDays > 0 {
		cutoff := l.now().UTC().AddDate(0, 0, -l.cfg.RetentionDays)
		keep := 0
		for keep < len(l.entries) && l.entries[keep].Timestamp.Before(cutoff) {
			keep++
		}
		if keep > 0 {
			l.entries = append([]Entry(nil), l.entries[keep:]...)
		}
	}
	if l.cfg.MaxEntries > 0 && len(l.entries) > l.cfg.MaxEntries {
		excess := len(l.entries) - l.cfg.MaxEntries
		l.entries = append([]Entry(nil), l.entries[excess:]...)
	}
}

// VerifyIntegrity walks the chain and checks every entry's hash and its
// link to the previous one. Verification is read-only: a broken chain is
// reported, never repaired.
func (l *Log) VerifyIntegrity() VerifyResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.entries {
		if i > 0 && e.PreviousHash != l.entries[i-1].Hash {
			return VerifyResult{Valid: false, Entries: len(l.entries), FirstBroken: i}
		}
		if hashEntry(e) != e.Hash {
			return VerifyResult{Valid: false, Entries: len(l.entries), FirstBroken: i}
		}
	}
	return VerifyResult{Valid: true, Entries: len(l.entries), FirstBroken: -1}
}

// Query filters entries by type and/or action ID. Empty filters match
// everything. Results are in append order.
func (l *Log) Query(entryType, actionID string, limit int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if entryType != "" && e.Type != entryType {
			continue
		}
		if actionID != "" && e.ActionID != actionID {
			continue
		}
		out = append(out, e)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Export serializes the full chain as JSON for offline inspection.
func (l *Log) Export() ([]byte, error) {
	l.mu.Lock()
	entries := make([]Entry, len(l.entries))
	copy(entries, l.entries)
	l.mu.Unlock()

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export audit log: %w", err)
	}
	return data, nil
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
