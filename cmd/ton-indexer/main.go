package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/fantics-casino/backend/internal/config"
	"github.com/fantics-casino/backend/internal/db"
	"github.com/fantics-casino/backend/internal/events"
	"github.com/fantics-casino/backend/internal/ledger"
	"github.com/fantics-casino/backend/internal/repositories"
	"github.com/fantics-casino/backend/internal/services"
	"github.com/fantics-casino/backend/internal/ton"
	"github.com/redis/go-redis/v9"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	tonapi "github.com/xssnick/tonutils-go/ton"
	"go.uber.org/zap"
)

const (
	redisCursorLT   = "ton-indexer:cursor:lt"
	redisCursorHash = "ton-indexer:cursor:hash"
	redisProcessed  = "ton-indexer:tx:"
	processedTTL    = 7 * 24 * time.Hour
	pollInterval    = 5 * time.Second
	txBatchSize     = 100
)

type indexer struct {
	api      tonapi.APIClientWrapped
	wallet   *address.Address
	payments *services.PaymentService
	rdb      *redis.Client
	log      *zap.Logger
}

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.TONHotWalletAddress == "" {
		log.Fatal("TON_HOT_WALLET_ADDRESS is required")
	}
	hotWallet, err := ton.ValidateAddress(cfg.TONHotWalletAddress, cfg.TONNetwork)
	if err != nil {
		log.Fatal("invalid TON_HOT_WALLET_ADDRESS", zap.String("addr", cfg.TONHotWalletAddress), zap.Error(err))
	}

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	publishers := events.MultiPublisher{events.NewRedisPublisher(rdb, log)}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaLedgerTopic, log)
		defer kafkaPub.Close()
		publishers = append(publishers, kafkaPub)
	}

	store := ledger.NewPostgresStore(pool, cfg.LedgerLockTimeout)
	coord := services.NewCoordinator(store, log)
	paymentService := services.NewPaymentService(
		repositories.NewPaymentRepo(pool),
		coord,
		repositories.NewAuditRepo(pool),
		publishers,
		events.NewRedisQueue(rdb, log),
		cfg,
		log,
	)

	api, err := ton.Connect(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to connect to TON network", zap.Error(err))
	}

	ix := &indexer{api: api, wallet: hotWallet, payments: paymentService, rdb: rdb, log: log}

	log.Info("TON indexer started",
		zap.String("hot_wallet", hotWallet.String()),
		zap.String("network", cfg.TONNetwork),
	)

	ix.initCursor(ctx)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			if err := ix.poll(ctx); err != nil {
				log.Error("poll cycle failed", zap.Error(err))
			}
		case <-sigCh:
			log.Info("shutting down TON indexer")
			cancel()
			return
		}
	}
}

// initCursor stores the current account LastTxLT on first run so that only
// transfers arriving after startup are processed.
func (ix *indexer) initCursor(ctx context.Context) {
	existing, _ := ix.rdb.Get(ctx, redisCursorLT).Result()
	if existing != "" {
		ix.log.Info("resuming from saved cursor", zap.String("lt", existing))
		return
	}

	account, err := ix.account(ctx)
	if err != nil {
		ix.log.Warn("failed to get account for cursor init", zap.Error(err))
		ix.rdb.Set(ctx, redisCursorLT, "0", 0)
		return
	}
	if account == nil || !account.IsActive || account.LastTxLT == 0 {
		ix.log.Info("hot wallet not active yet, starting from LT=0")
		ix.rdb.Set(ctx, redisCursorLT, "0", 0)
		return
	}

	ix.saveCursor(ctx, account.LastTxLT, account.LastTxHash)
	ix.log.Info("cursor initialized at current account state",
		zap.Uint64("lt", account.LastTxLT),
		zap.String("hash", hex.EncodeToString(account.LastTxHash)),
	)
}

func (ix *indexer) account(ctx context.Context) (*tlb.Account, error) {
	block, err := ix.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("get master block: %w", err)
	}
	account, err := ix.api.GetAccount(ctx, block, ix.wallet)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

func (ix *indexer) cursorLT(ctx context.Context) uint64 {
	val, err := ix.rdb.Get(ctx, redisCursorLT).Result()
	if err != nil || val == "" {
		return 0
	}
	lt, _ := strconv.ParseUint(val, 10, 64)
	return lt
}

func (ix *indexer) saveCursor(ctx context.Context, lt uint64, hash []byte) {
	ix.rdb.Set(ctx, redisCursorLT, strconv.FormatUint(lt, 10), 0)
	ix.rdb.Set(ctx, redisCursorHash, hex.EncodeToString(hash), 0)
}

// poll fetches every transaction newer than the cursor, settles the matching
// payments and moves the cursor to the account head.
func (ix *indexer) poll(ctx context.Context) error {
	cursor := ix.cursorLT(ctx)

	account, err := ix.account(ctx)
	if err != nil {
		return err
	}
	if account == nil || !account.IsActive || account.LastTxLT <= cursor {
		return nil
	}

	txs, err := ix.fetchSince(ctx, account, cursor)
	if err != nil {
		return fmt.Errorf("fetch transactions: %w", err)
	}
	if len(txs) > 0 {
		ix.log.Info("found new transactions", zap.Int("count", len(txs)))
	}
	if err := settleBatch(ctx, txs, ix.process, ix.saveCursor); err != nil {
		return err
	}

	ix.saveCursor(ctx, account.LastTxLT, account.LastTxHash)
	return nil
}

// settleBatch handles txs oldest first and moves the cursor past each one only
// after it was handled. On the first failure it stops, so that transaction is
// fetched again on the next poll.
func settleBatch(
	ctx context.Context,
	txs []*tlb.Transaction,
	handle func(context.Context, *tlb.Transaction) error,
	save func(ctx context.Context, lt uint64, hash []byte),
) error {
	for _, tx := range txs {
		if err := handle(ctx, tx); err != nil {
			return fmt.Errorf("process tx lt=%d: %w", tx.LT, err)
		}
		save(ctx, tx.LT, tx.Hash)
	}
	return nil
}

// fetchSince pages backwards from the account head until it reaches cursor
// and returns the transactions oldest first.
func (ix *indexer) fetchSince(ctx context.Context, account *tlb.Account, cursor uint64) ([]*tlb.Transaction, error) {
	var out []*tlb.Transaction

	lt := account.LastTxLT
	hash := account.LastTxHash

	for {
		txs, err := ix.api.ListTransactions(ctx, ix.wallet, uint32(txBatchSize), lt, hash)
		if err != nil {
			return nil, fmt.Errorf("list transactions (lt=%d): %w", lt, err)
		}
		if len(txs) == 0 {
			break
		}

		reached := false
		for _, tx := range txs {
			if tx.LT <= cursor {
				reached = true
				continue
			}
			out = append(out, tx)
		}
		if reached || len(txs) < txBatchSize {
			break
		}

		oldest := txs[0]
		if oldest.PrevTxLT == 0 {
			break
		}
		lt = oldest.PrevTxLT
		hash = oldest.PrevTxHash
	}

	sort.Slice(out, func(i, j int) bool { return out[i].LT < out[j].LT })
	return out, nil
}

// process settles the pending payment an incoming transfer pays for, if any.
// Only infrastructure faults are returned; the transfer must then be retried.
func (ix *indexer) process(ctx context.Context, tx *tlb.Transaction) error {
	if tx.IO.In == nil {
		return nil
	}
	inMsg, ok := tx.IO.In.Msg.(*tlb.InternalMessage)
	if !ok || inMsg == nil || inMsg.Bounced {
		return nil
	}
	received := inMsg.Amount.Nano()
	if received.Sign() <= 0 || !received.IsInt64() {
		return nil
	}

	comment := ton.ExtractComment(inMsg)
	if comment == "" {
		ix.log.Debug("transfer without comment, skipping",
			zap.Uint64("lt", tx.LT),
			zap.String("from", inMsg.SrcAddr.String()),
			zap.String("amount", inMsg.Amount.String()),
		)
		return nil
	}

	txKey := fmt.Sprintf("%s%d", redisProcessed, tx.LT)
	done, err := ix.rdb.Exists(ctx, txKey).Result()
	if err != nil {
		return fmt.Errorf("check processed key: %w", err)
	}
	if done > 0 {
		return nil
	}

	txHash := hex.EncodeToString(tx.Hash)
	from := inMsg.SrcAddr.String()

	res, err := ix.payments.ConfirmFromChain(ctx, comment, received.Int64(), txHash, from)
	if err != nil {
		rej, ok := services.AsRejection(err)
		if !ok {
			ix.log.Error("failed to settle incoming transfer", zap.Uint64("lt", tx.LT), zap.Error(err))
			return err
		}
		ix.log.Info("incoming transfer not credited",
			zap.Uint64("lt", tx.LT),
			zap.String("comment", comment),
			zap.String("amount", inMsg.Amount.String()),
			zap.String("reason", string(rej.Kind)),
			zap.String("message", rej.Message),
		)
		// недоплату не помечаем: пользователь может дослать
		if rej.Kind != services.KindInvalid {
			ix.rdb.Set(ctx, txKey, "skip:"+string(rej.Kind), processedTTL)
		}
		return nil
	}

	ix.rdb.Set(ctx, txKey, "credited:"+res.PaymentID, processedTTL)
	ix.log.Info("payment credited from chain",
		zap.String("payment_id", res.PaymentID),
		zap.Uint64("lt", tx.LT),
		zap.String("amount", inMsg.Amount.String()),
		zap.Int64("fantics", res.AddedAmount),
		zap.String("from", from),
	)
	return nil
}
