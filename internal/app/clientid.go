package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/garden-controller/internal/store"
)

const (
	deviceNamespace = "sg_dev"
	clientIDKey     = "cid"
)

// ClientID returns "<deviceName>-<suffix>". The suffix is generated once and
// persisted so the broker sees a stable identity across restarts. If the
// store is unavailable a fresh suffix is used for this process only.
func ClientID(ctx context.Context, st store.Store, deviceName string) string {
	suffix, err := loadSuffix(ctx, st)
	if err != nil {
		suffix = newSuffix()
		log.Warn().Err(err).Str("suffix", suffix).Msg("client id suffix not persisted")
	}
	return deviceName + "-" + suffix
}

func newSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func loadSuffix(ctx context.Context, st store.Store) (string, error) {
	p, err := st.Open(ctx, deviceNamespace, store.ReadWrite)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", deviceNamespace, err)
	}
	if s := p.String(clientIDKey, ""); s != "" {
		return s, p.Close()
	}
	s := newSuffix()
	if err := p.PutString(clientIDKey, s); err != nil {
		p.Close()
		return "", err
	}
	if err := p.Close(); err != nil {
		return "", fmt.Errorf("persist client id: %w", err)
	}
	return s, nil
}
