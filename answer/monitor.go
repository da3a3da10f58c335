package answer

import "github.com/poiesic/docent/core"

// AskMonitor provides hooks to observe the answer process.
// Implement this interface to track intermediate steps while a question is
// condensed, matched against the cache, and answered.
type AskMonitor interface {
	Start(question string)
	Condensed(standalone string)
	CacheHit(key string)
	CacheMiss(key string)
	Retrieved(sources []core.ScoredSource)
	ModelUsed(model string)
	Finish(answer *core.Answer)
}

// noopMonitor is a no-op implementation of AskMonitor
type noopMonitor struct{}

var _ AskMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                  {}
func (n *noopMonitor) Condensed(_ string)              {}
func (n *noopMonitor) CacheHit(_ string)               {}
func (n *noopMonitor) CacheMiss(_ string)              {}
func (n *noopMonitor) Retrieved(_ []core.ScoredSource) {}
func (n *noopMonitor) ModelUsed(_ string)              {}
func (n *noopMonitor) Finish(_ *core.Answer)           {}
