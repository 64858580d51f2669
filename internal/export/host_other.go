//go:build !windows

package export

import "github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/domain"

// NewHost reports that no export host is available. The rendering
// application only exposes its automation surface on Windows.
func NewHost() (Host, error) {
	return nil, domain.ErrHostUnavailable
}
