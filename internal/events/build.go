package events

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/alexanderksmi/doffin-hunter/internal/resilience"
)

// Backend names.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendNATS     = "nats"
	BackendNone     = "none"
)

// Config selects and configures the event backends.
type Config struct {
	Backends         []string
	Redis            RedisConfig
	NATSURL          string
	FailureThreshold int
	ResetTimeout     time.Duration
}

// New builds a publisher fanning out to every configured backend, each
// guarded by its own circuit breaker. pg is required for the postgres
// backend. The returned func closes any connections New opened.
func New(cfg Config, pg Execer) (Publisher, func(), error) {
	breakers := resilience.NewServiceBreakers(resilience.FromCircuitConfig(cfg.FailureThreshold, cfg.ResetTimeout))

	var (
		pubs    Multi
		closers []func()
	)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	for _, b := range cfg.Backends {
		var p Publisher
		switch b {
		case BackendNone, "":
			continue
		case BackendPostgres:
			if pg == nil {
				closeAll()
				return nil, nil, eris.New("events: postgres backend requires the postgres store")
			}
			p = NewPostgres(pg)
		case BackendRedis:
			client := NewRedisClient(cfg.Redis)
			closers = append(closers, func() { _ = client.Close() })
			p = NewRedis(client)
		case BackendNATS:
			nc, err := ConnectNATS(cfg.NATSURL)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			closers = append(closers, func() { _ = nc.Drain() })
			p = NewNATS(nc)
		default:
			closeAll()
			return nil, nil, eris.Errorf("events: unknown backend %q", b)
		}
		pubs = append(pubs, NewBestEffort(b, p, breakers.Get(b)))
	}

	zap.L().Debug("event publishers configured", zap.Strings("backends", cfg.Backends))
	if len(pubs) == 0 {
		return Noop{}, closeAll, nil
	}
	return pubs, closeAll, nil
}
