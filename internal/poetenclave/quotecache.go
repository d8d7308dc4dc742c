package poetenclave

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// quoteCacheSize bounds the number of distinct base64-encoded quotes this
// process will remember the parse of. Peers resend the same quote on every
// verification retry, so this keeps repeated verify_signup_info calls from
// re-running ParseSgxQuote over bytes it has already decoded.
const quoteCacheSize = 4096

// quoteCache memoizes ParseSgxQuote by the raw (still-encoded) quote bytes.
// It changes nothing about what verify_signup_info checks or the errors it
// returns -- a cache miss falls back to parsing directly.
type quoteCache struct {
	cache *lru.Cache[string, SgxQuote]
}

func newQuoteCache() *quoteCache {
	c, err := lru.New[string, SgxQuote](quoteCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// quoteCacheSize never is.
		panic(err)
	}
	return &quoteCache{cache: c}
}

// parse returns the SgxQuote decoded from the base64 quote body,
// consulting the cache before calling ParseSgxQuote.
func (c *quoteCache) parse(quoteB64 string, raw []byte) (SgxQuote, error) {
	if q, ok := c.cache.Get(quoteB64); ok {
		return q, nil
	}
	q, err := ParseSgxQuote(raw)
	if err != nil {
		return q, err
	}
	c.cache.Add(quoteB64, q)
	return q, nil
}
