package manager

import "segmentd/internal/inferer"

// SanityCheck reports whether the interpreter and inference script are
// available. It does not mutate state and is safe to call at any time.
func (m *Manager) SanityCheck() inferer.SanityReport {
	if m.cfg.Sanity == nil {
		return inferer.SanityReport{InterpreterFound: true, ScriptFound: true}
	}
	return m.cfg.Sanity()
}
