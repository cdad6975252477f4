package echart

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alejandrodnm/chartsync/internal/ports"
)

// Opener crea superficies que se vuelcan a Dir al cerrarse. Dir vacío no
// escribe nada.
type Opener struct {
	Dir string
}

func (o Opener) Open(ctx context.Context, title string) (ports.ChartSurface, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("echart.Open: %w", err)
	}
	if o.Dir == "" {
		return NewSurface(title, ""), nil
	}
	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("echart.Open: %w", err)
	}
	return NewSurface(title, filepath.Join(o.Dir, fileName(title))), nil
}

func fileName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '_'
	}, strings.TrimSpace(title))
	if name == "" {
		name = "chart"
	}
	return name + ".html"
}
