package playstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"playstore-scraper/models"
	"playstore-scraper/utils"
)

const (
	// DefaultBaseURL is the public Play Store origin.
	DefaultBaseURL = "https://play.google.com"

	batchExecutePath = "/_/PlayStoreUi/data/batchexecute"
	reviewsRPC       = "UsvDTd"

	// maxPageSize is the largest page the review RPC serves per request.
	maxPageSize = 199
)

// Sort orders reviews on the Play Store side.
type Sort int

const (
	SortRelevant Sort = 1
	SortNewest   Sort = 2
	SortRating   Sort = 3
)

// ParseSort maps a config value to a Sort.
func ParseSort(s string) (Sort, error) {
	switch strings.ToLower(s) {
	case "newest", "":
		return SortNewest, nil
	case "relevant", "most_relevant":
		return SortRelevant, nil
	case "rating":
		return SortRating, nil
	}
	return 0, fmt.Errorf("playstore: unknown sort %q", s)
}

// ErrMalformedPayload means the Play Store answered with a shape we cannot map.
var ErrMalformedPayload = errors.New("playstore: malformed review payload")

// Transport posts a batchexecute body for appID and returns the raw response text.
type Transport interface {
	BatchExecute(ctx context.Context, appID, lang, country, body string) (string, error)
}

// Options fix the language, region and ordering of every request.
type Options struct {
	Lang       string
	Country    string
	Sort       Sort
	RatePerSec float64
}

// Client fetches reviews for an app, paging internally up to the requested
// count. The continuation token is discarded once the count is reached.
type Client struct {
	transport Transport
	opts      Options
	limiter   *rate.Limiter
	logger    *utils.Logger
}

// NewClient creates a review client over the given transport.
func NewClient(t Transport, opts Options, logger *utils.Logger) *Client {
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	if opts.Sort == 0 {
		opts.Sort = SortNewest
	}
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &Client{
		transport: t,
		opts:      opts,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
	}
}

// Reviews returns up to count reviews for appID.
func (c *Client) Reviews(ctx context.Context, appID string, count int) ([]models.RawReview, error) {
	if count <= 0 {
		return nil, nil
	}

	out := make([]models.RawReview, 0, count)
	token := ""
	for len(out) < count {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		n := count - len(out)
		if n > maxPageSize {
			n = maxPageSize
		}

		body, err := EncodeReviewsRequest(appID, c.opts.Sort, n, token)
		if err != nil {
			return nil, err
		}
		text, err := c.transport.BatchExecute(ctx, appID, c.opts.Lang, c.opts.Country, body)
		if err != nil {
			return nil, fmt.Errorf("playstore: %s: %w", appID, err)
		}

		page, next, err := DecodeReviewsResponse(text)
		if err != nil {
			if errors.Is(err, ErrMalformedPayload) {
				return nil, utils.Permanent(fmt.Errorf("playstore: %s: %w", appID, err))
			}
			return nil, fmt.Errorf("playstore: %s: %w", appID, err)
		}
		c.logger.Debug("[playstore] %s: page of %d reviews (have %d/%d)", appID, len(page), len(out)+len(page), count)

		out = append(out, page...)
		if next == "" || len(page) == 0 {
			break
		}
		token = next
	}

	if len(out) > count {
		out = out[:count]
	}
	return out, nil
}

// EncodeReviewsRequest builds the form body of the reviews RPC.
func EncodeReviewsRequest(appID string, sort Sort, count int, token string) (string, error) {
	var tok any
	if token != "" {
		tok = token
	}
	inner, err := json.Marshal([]any{
		nil, nil,
		[]any{2, int(sort), []any{count, nil, tok}, nil, []any{nil, nil}},
		[]any{appID, 7},
	})
	if err != nil {
		return "", fmt.Errorf("playstore: encode request: %w", err)
	}
	outer, err := json.Marshal([]any{[]any{[]any{reviewsRPC, string(inner), nil, "generic"}}})
	if err != nil {
		return "", fmt.Errorf("playstore: encode request: %w", err)
	}
	return url.Values{"f.req": {string(outer)}}.Encode(), nil
}

// DecodeReviewsResponse parses a batchexecute response into reviews and the
// continuation token ("" when there are no more pages).
func DecodeReviewsResponse(text string) ([]models.RawReview, string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, ")]}'")

	var envelope []any
	if err := json.NewDecoder(strings.NewReader(text)).Decode(&envelope); err != nil {
		return nil, "", fmt.Errorf("playstore: decode envelope: %w", err)
	}

	payload, ok := dig(envelope, 0, 2).(string)
	if !ok {
		// The RPC answers with a null payload when it rejects the request.
		return nil, "", errors.New("playstore: empty rpc payload")
	}

	var data []any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var token string
	if t, ok := dig(data, -2, -1).(string); ok {
		token = t
	}

	list, ok := dig(data, 0).([]any)
	if !ok {
		return nil, token, nil
	}

	reviews := make([]models.RawReview, 0, len(list))
	for i, item := range list {
		r, err := decodeReview(item)
		if err != nil {
			return nil, "", fmt.Errorf("%w: item %d: %v", ErrMalformedPayload, i, err)
		}
		reviews = append(reviews, r)
	}
	return reviews, token, nil
}

func decodeReview(item any) (models.RawReview, error) {
	if _, ok := item.([]any); !ok {
		return models.RawReview{}, errors.New("not an array")
	}

	score, ok := dig(item, 2).(float64)
	if !ok {
		return models.RawReview{}, errors.New("missing score")
	}
	ts, ok := dig(item, 5, 0).(float64)
	if !ok {
		return models.RawReview{}, errors.New("missing timestamp")
	}

	r := models.RawReview{
		Score: int(score),
		At:    time.Unix(int64(ts), 0),
	}
	r.ReviewID, _ = dig(item, 0).(string)
	r.UserName, _ = dig(item, 1, 0).(string)
	// Star-only reviews carry a null content.
	r.Content, _ = dig(item, 4).(string)
	if thumbs, ok := dig(item, 6).(float64); ok {
		r.ThumbsUp = int(thumbs)
	}
	r.AppVersion, _ = dig(item, 10).(string)
	r.Reply, _ = dig(item, 7, 1).(string)
	if replied, ok := dig(item, 7, 2, 0).(float64); ok {
		r.RepliedAt = time.Unix(int64(replied), 0)
	}
	return r, nil
}

// dig walks nested JSON arrays; negative indexes count from the end.
func dig(v any, path ...int) any {
	for _, i := range path {
		arr, ok := v.([]any)
		if !ok {
			return nil
		}
		if i < 0 {
			i += len(arr)
		}
		if i < 0 || i >= len(arr) {
			return nil
		}
		v = arr[i]
	}
	return v
}
