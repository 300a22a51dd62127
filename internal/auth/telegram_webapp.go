package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultInitDataTTL: максимальный возраст auth_date, если в конфиге не задан свой.
const DefaultInitDataTTL = 5 * time.Minute

// допустимый сдвиг часов для auth_date из будущего
const clockSkew = time.Minute

var (
	ErrInitDataMalformed = errors.New("malformed init data")
	ErrInitDataSignature = errors.New("init data signature mismatch")
	ErrInitDataExpired   = errors.New("init data expired")
)

// WebAppUser is the "user" object of Telegram initData.
type WebAppUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// InitData is the verified launch payload of the Mini App.
type InitData struct {
	User       WebAppUser
	AuthDate   time.Time
	QueryID    string
	StartParam string
}

// InitDataVerifier checks initData signed by the bot.
// https://core.telegram.org/bots/webapps#validating-data-received-via-the-mini-app
type InitDataVerifier struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

func NewInitDataVerifier(botToken string, maxAge time.Duration) *InitDataVerifier {
	if maxAge <= 0 {
		maxAge = DefaultInitDataTTL
	}
	return &InitDataVerifier{
		// secret_key = HMAC-SHA256("WebAppData", bot_token)
		secret: hmacSHA256([]byte("WebAppData"), []byte(botToken)),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Sign returns the hex hash the bot would attach to vals. The "hash" key itself is ignored.
func (v *InitDataVerifier) Sign(vals url.Values) string {
	pairs := make([]string, 0, len(vals))
	for key, values := range vals {
		if key == "hash" {
			continue
		}
		for _, val := range values {
			pairs = append(pairs, key+"="+val)
		}
	}
	sort.Strings(pairs)
	return hex.EncodeToString(hmacSHA256(v.secret, []byte(strings.Join(pairs, "\n"))))
}

// Verify checks the signature first, then freshness, then decodes the user.
func (v *InitDataVerifier) Verify(raw string) (*InitData, error) {
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitDataMalformed, err)
	}

	received := strings.ToLower(vals.Get("hash"))
	if received == "" {
		return nil, fmt.Errorf("%w: hash is missing", ErrInitDataMalformed)
	}
	if !hmac.Equal([]byte(v.Sign(vals)), []byte(received)) {
		return nil, ErrInitDataSignature
	}

	unix, err := strconv.ParseInt(vals.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: auth_date is not a unix timestamp", ErrInitDataMalformed)
	}
	authDate := time.Unix(unix, 0)
	now := v.now()
	if age := now.Sub(authDate); age > v.maxAge {
		return nil, fmt.Errorf("%w: auth_date is %s old (max %s)", ErrInitDataExpired, age.Round(time.Second), v.maxAge)
	}
	if authDate.After(now.Add(clockSkew)) {
		return nil, fmt.Errorf("%w: auth_date is in the future", ErrInitDataMalformed)
	}

	data := &InitData{
		AuthDate:   authDate,
		QueryID:    vals.Get("query_id"),
		StartParam: vals.Get("start_param"),
	}
	rawUser := vals.Get("user")
	if rawUser == "" {
		return nil, fmt.Errorf("%w: user is missing", ErrInitDataMalformed)
	}
	if err := json.Unmarshal([]byte(rawUser), &data.User); err != nil {
		return nil, fmt.Errorf("%w: user: %v", ErrInitDataMalformed, err)
	}
	if data.User.ID <= 0 {
		return nil, fmt.Errorf("%w: user id %d", ErrInitDataMalformed, data.User.ID)
	}
	return data, nil
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}
