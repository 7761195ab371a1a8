package runtime

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	cfgpkg "github.com/rzbill/fdispatch/internal/config"
)

func TestOpenCloseHealth(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Subscriptions = []string{"main"}
	rt, err := Open(cfg, prometheus.NewRegistry(), nil)
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	defer rt.Close()
	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestOpenWiresSubscriptionsAndOffer(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Subscriptions = []string{"a", "b"}
	rt, err := Open(cfg, prometheus.NewRegistry(), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()

	if _, ok := rt.Dispatcher().Subscription("a"); !ok {
		t.Fatalf("expected subscription a to be pre-declared")
	}
	if _, err := rt.Dispatcher().Offer([]byte("hi"), 0); err != nil {
		t.Fatalf("offer: %v", err)
	}
}

func TestOpenRejectsUnknownMode(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Mode = "bogus"
	if _, err := Open(cfg, prometheus.NewRegistry(), nil); err == nil {
		t.Fatalf("expected an error for an unknown mode")
	}
}
