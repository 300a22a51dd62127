package ton

import (
	"context"
	"fmt"
	"strings"

	"github.com/fantics-casino/backend/internal/config"
	"github.com/xssnick/tonutils-go/liteclient"
	tonapi "github.com/xssnick/tonutils-go/ton"
	"go.uber.org/zap"
)

// Connect establishes a connection to the TON network.
// If LITE_SERVER_HOST + LITE_SERVER_KEY are set, connects to a specific lite server.
// Otherwise, auto-discovers lite servers from the global TON config based on TON_NETWORK.
func Connect(ctx context.Context, cfg *config.Config, log *zap.Logger) (tonapi.APIClientWrapped, error) {
	client := liteclient.NewConnectionPool()

	if cfg.LiteServerHost != "" && cfg.LiteServerKey != "" {
		addr := fmt.Sprintf("%s:%d", cfg.LiteServerHost, cfg.LiteServerPort)
		log.Info("connecting to lite server", zap.String("addr", addr))
		if err := client.AddConnection(ctx, addr, cfg.LiteServerKey); err != nil {
			return nil, fmt.Errorf("connect to lite server %s: %w", addr, err)
		}
	} else {
		configURL := GlobalConfigURL(cfg.TONNetwork)
		log.Info("connecting via global config", zap.String("url", configURL), zap.String("network", cfg.TONNetwork))
		if err := client.AddConnectionsFromConfigUrl(ctx, configURL); err != nil {
			return nil, fmt.Errorf("connect via config %s: %w", configURL, err)
		}
	}

	proofPolicy := tonapi.ProofCheckPolicyFast
	if IsMainnet(cfg.TONNetwork) {
		proofPolicy = tonapi.ProofCheckPolicySecure
	}

	return tonapi.NewAPIClient(client, proofPolicy).WithRetry(), nil
}

func GlobalConfigURL(network string) string {
	if IsMainnet(network) {
		return "https://ton.org/global.config.json"
	}
	return "https://ton.org/testnet-global.config.json"
}

func IsMainnet(network string) bool {
	return strings.EqualFold(strings.TrimSpace(network), "mainnet")
}
