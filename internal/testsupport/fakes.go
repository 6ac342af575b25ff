package testsupport

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"pigeonhole/internal/knowledge"
	"pigeonhole/internal/mailbox"
)

// ScriptedConnector is an in-memory mailbox.Connector fed with canned emails.
// Hooks let tests inject latency or failures per attachment.
type ScriptedConnector struct {
	mu      sync.Mutex
	emails  []mailbox.EmailSummary
	content map[string][]byte
	listErr error

	// OnDownload, when set, runs before each download and may return an error
	// to fail that attachment. The key is "emailID/attachmentID".
	OnDownload func(ctx context.Context, key string) error

	downloads []string
}

// NewScriptedConnector builds an empty connector.
func NewScriptedConnector() *ScriptedConnector {
	return &ScriptedConnector{content: make(map[string][]byte)}
}

// AddEmail registers an email whose attachments are served from the given
// contents, keyed by attachment id.
func (c *ScriptedConnector) AddEmail(summary mailbox.EmailSummary, contents map[string][]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emails = append(c.emails, summary)
	for attID, data := range contents {
		c.content[summary.ID+"/"+attID] = data
	}
}

// FailListing makes ListEmails return the given error.
func (c *ScriptedConnector) FailListing(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listErr = err
}

// Downloads returns the keys downloaded so far, in call order.
func (c *ScriptedConnector) Downloads() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.downloads...)
}

func (c *ScriptedConnector) ListEmails(_ context.Context, _ mailbox.ListCriteria) ([]mailbox.EmailSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listErr != nil {
		return nil, c.listErr
	}
	return append([]mailbox.EmailSummary(nil), c.emails...), nil
}

func (c *ScriptedConnector) DownloadAttachment(ctx context.Context, emailID, attachmentID string) ([]byte, error) {
	key := emailID + "/" + attachmentID
	if hook := c.OnDownload; hook != nil {
		if err := hook(ctx, key); err != nil {
			return nil, err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.content[key]
	if !ok {
		return nil, fmt.Errorf("no scripted content for %s", key)
	}
	c.downloads = append(c.downloads, key)
	return append([]byte(nil), data...), nil
}

// MemoryKnowledge is an in-memory implementation of the knowledge provider
// surfaces, convenient for engine and pipeline tests.
type MemoryKnowledge struct {
	mu         sync.Mutex
	Assets     []knowledge.Asset
	Senders    map[string][]string
	Categories map[string][]string
	Fallbacks  map[string]string
	Patterns   map[string][]knowledge.Pattern
	FileRules  map[string][]knowledge.Rule
	Rules      []knowledge.Rule
	History    map[string][]knowledge.PastOutcome
}

// NewMemoryKnowledge builds an empty provider.
func NewMemoryKnowledge() *MemoryKnowledge {
	return &MemoryKnowledge{
		Senders:    make(map[string][]string),
		Categories: make(map[string][]string),
		Fallbacks:  make(map[string]string),
		Patterns:   make(map[string][]knowledge.Pattern),
		FileRules:  make(map[string][]knowledge.Rule),
		History:    make(map[string][]knowledge.PastOutcome),
	}
}

func (m *MemoryKnowledge) SearchAssetProfiles(_ context.Context, terms []string) ([]knowledge.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found []knowledge.Asset
	for _, asset := range m.Assets {
		haystack := strings.ToLower(asset.Name + " " + strings.Join(asset.Keywords, " "))
		for _, term := range terms {
			if term != "" && strings.Contains(haystack, strings.ToLower(term)) {
				found = append(found, asset)
				break
			}
		}
	}
	return found, nil
}

func (m *MemoryKnowledge) ListAssets(context.Context) ([]knowledge.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]knowledge.Asset(nil), m.Assets...), nil
}

func (m *MemoryKnowledge) SenderAssets(_ context.Context, sender string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Senders[strings.ToLower(sender)], nil
}

func (m *MemoryKnowledge) AllowedCategories(_ context.Context, assetType string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Categories[assetType], nil
}

func (m *MemoryKnowledge) FallbackCategory(_ context.Context, assetType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Fallbacks[assetType], nil
}

func (m *MemoryKnowledge) MatchingRules(context.Context) ([]knowledge.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Rules) == 0 {
		return knowledge.DefaultMatchingRules(), nil
	}
	return append([]knowledge.Rule(nil), m.Rules...), nil
}

func (m *MemoryKnowledge) ClassificationPatterns(_ context.Context, category, _ string) ([]knowledge.Pattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Patterns[category], nil
}

func (m *MemoryKnowledge) FileProcessingRules(_ context.Context, fileExt string) ([]knowledge.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.FileRules[strings.ToLower(fileExt)], nil
}

func (m *MemoryKnowledge) SimilarCases(_ context.Context, sender, assetID string) ([]knowledge.PastOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.History[strings.ToLower(sender)+"|"+assetID], nil
}

func (m *MemoryKnowledge) UpsertSenderMapping(_ context.Context, sender, assetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(sender)
	for _, existing := range m.Senders[key] {
		if existing == assetID {
			return nil
		}
	}
	m.Senders[key] = append(m.Senders[key], assetID)
	return nil
}

func (m *MemoryKnowledge) RecordOutcome(_ context.Context, outcome knowledge.PastOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(outcome.Sender) + "|" + outcome.AssetID
	m.History[key] = append(m.History[key], outcome)
	return nil
}
