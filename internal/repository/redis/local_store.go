package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"go-freelance-backend/internal/domain"

	goredis "github.com/redis/go-redis/v9"
)

// Keeps the log free of consecutive duplicates and capped at ARGV[2].
// KEYS[1] = navigation list, ARGV[1] = path, ARGV[2] = max entries
var pushNavigationScript = goredis.NewScript(`
local head = redis.call('LINDEX', KEYS[1], 0)
if head == ARGV[1] then
    return 0
end
redis.call('LPUSH', KEYS[1], ARGV[1])
redis.call('LTRIM', KEYS[1], 0, tonumber(ARGV[2]) - 1)
return 1
`)

// Debits only when the balance covers the amount.
// KEYS[1] = wallet key, ARGV[1] = amount
// Returns: [1, new_balance] on success, [0, balance] when funds are short
var debitScript = goredis.NewScript(`
local balance = tonumber(redis.call('GET', KEYS[1]) or '0')
local amount = tonumber(ARGV[1])
if balance < amount then
    return {0, tostring(balance)}
end
local updated = redis.call('INCRBYFLOAT', KEYS[1], -amount)
return {1, updated}
`)

// LocalStore keeps per-user session, navigation and wallet data in redis.
type LocalStore struct {
	rdb *goredis.Client
}

func NewLocalStore(rdb *goredis.Client) *LocalStore {
	return &LocalStore{rdb: rdb}
}

func sessionKey(uid string) string    { return "session:" + uid }
func navigationKey(uid string) string { return "nav:" + uid }
func walletKey(uid string) string     { return "wallet:" + uid }
func ledgerKey(uid string) string     { return "wallet:" + uid + ":ledger" }

func (s *LocalStore) SaveSession(ctx context.Context, uid string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	values := make(map[string]any, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	return s.rdb.HSet(ctx, sessionKey(uid), values).Err()
}

func (s *LocalStore) GetSession(ctx context.Context, uid string) (map[string]string, error) {
	return s.rdb.HGetAll(ctx, sessionKey(uid)).Result()
}

func (s *LocalStore) ClearSession(ctx context.Context, uid string) error {
	return s.rdb.Del(ctx, sessionKey(uid)).Err()
}

func (s *LocalStore) PushNavigation(ctx context.Context, uid, path string) error {
	return pushNavigationScript.Run(ctx, s.rdb, []string{navigationKey(uid)}, path, domain.MaxNavigationEntries).Err()
}

func (s *LocalStore) Navigation(ctx context.Context, uid string) ([]string, error) {
	return s.rdb.LRange(ctx, navigationKey(uid), 0, -1).Result()
}

func (s *LocalStore) Balance(ctx context.Context, uid string) (float64, error) {
	balance, err := s.rdb.Get(ctx, walletKey(uid)).Float64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return balance, err
}

func (s *LocalStore) Credit(ctx context.Context, uid string, amount float64) (float64, error) {
	return s.rdb.IncrByFloat(ctx, walletKey(uid), amount).Result()
}

func (s *LocalStore) Debit(ctx context.Context, uid string, amount float64) (float64, error) {
	result, err := debitScript.Run(ctx, s.rdb, []string{walletKey(uid)}, amount).Slice()
	if err != nil {
		return 0, fmt.Errorf("wallet debit failed: %w", err)
	}
	if len(result) < 2 {
		return 0, fmt.Errorf("unexpected wallet debit result %v", result)
	}

	ok, _ := result[0].(int64)
	raw, _ := result[1].(string)
	balance, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected wallet balance %q: %w", raw, err)
	}
	if ok != 1 {
		return balance, domain.ErrInsufficientFunds
	}
	return balance, nil
}

func (s *LocalStore) AppendLedger(ctx context.Context, uid string, entry domain.WalletEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.LPush(ctx, ledgerKey(uid), payload)
		pipe.LTrim(ctx, ledgerKey(uid), 0, domain.MaxLedgerEntries-1)
		return nil
	})
	return err
}

func (s *LocalStore) Ledger(ctx context.Context, uid string) ([]domain.WalletEntry, error) {
	raw, err := s.rdb.LRange(ctx, ledgerKey(uid), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]domain.WalletEntry, 0, len(raw))
	for _, r := range raw {
		var entry domain.WalletEntry
		if err := json.Unmarshal([]byte(r), &entry); err != nil {
			return nil, fmt.Errorf("corrupt ledger entry for %s: %w", uid, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *LocalStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
