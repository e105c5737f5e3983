package coupon

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/Lixing-Zhang/furniture-store/backend/internal/models"
)

var (
	ErrCouponNotFound    = errors.New("coupon not found")
	ErrCouponInactive    = errors.New("coupon is not active")
	ErrCouponNotStarted  = errors.New("coupon is not valid yet")
	ErrCouponExpired     = errors.New("coupon has expired")
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	ErrInvalidCoupon     = errors.New("invalid coupon record")
)

const (
	filterFalsePositiveRate = 0.001
	minFilterCapacity       = 1024
)

// Directory is the store of coupon records, keyed by upper-cased code.
// A bloom filter over the codes short-circuits lookups of unknown codes.
type Directory struct {
	mu      sync.RWMutex
	coupons map[string]*models.Coupon
	filter  *bloom.BloomFilter
	sources int
}

// sourceLoadResult holds the result of loading a single source
type sourceLoadResult struct {
	index   int
	coupons []models.Coupon
	err     error
}

// NewDirectory creates an empty coupon directory
func NewDirectory() *Directory {
	return &Directory{
		coupons: make(map[string]*models.Coupon),
		filter:  bloom.NewWithEstimates(minFilterCapacity, filterFalsePositiveRate),
	}
}

// NormalizeCode returns the canonical form of a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// LoadFromURLs loads coupon records from several URLs concurrently.
// Each body is JSON lines, optionally gzipped. Returns error if any source
// fails to load; the current records are kept in that case.
func (d *Directory) LoadFromURLs(ctx context.Context, urls []string) error {
	client := &http.Client{Timeout: 2 * time.Minute}
	return d.load(ctx, urls, func(ctx context.Context, url string) ([]models.Coupon, error) {
		return loadFromURL(ctx, client, url)
	})
}

// LoadFromFiles loads coupon records from local files concurrently.
func (d *Directory) LoadFromFiles(ctx context.Context, paths []string) error {
	return d.load(ctx, paths, func(ctx context.Context, path string) ([]models.Coupon, error) {
		return loadFromFile(path)
	})
}

// LoadSources loads a mix of http(s) URLs and file paths.
func (d *Directory) LoadSources(ctx context.Context, sources []string) error {
	client := &http.Client{Timeout: 2 * time.Minute}
	return d.load(ctx, sources, func(ctx context.Context, source string) ([]models.Coupon, error) {
		if isURL(source) {
			return loadFromURL(ctx, client, source)
		}
		return loadFromFile(source)
	})
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func (d *Directory) load(ctx context.Context, sources []string, fetch func(context.Context, string) ([]models.Coupon, error)) error {
	if len(sources) == 0 {
		return fmt.Errorf("no coupon sources provided")
	}

	resultChan := make(chan sourceLoadResult, len(sources))

	var wg sync.WaitGroup
	for i, source := range sources {
		wg.Add(1)
		go func(index int, src string) {
			defer wg.Done()

			coupons, err := fetch(ctx, src)
			resultChan <- sourceLoadResult{
				index:   index,
				coupons: coupons,
				err:     err,
			}
		}(i, source)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// Collect results maintaining source order
	results := make([]sourceLoadResult, len(sources))
	for result := range resultChan {
		results[result.index] = result
	}

	total := 0
	for i, result := range results {
		if result.err != nil {
			return fmt.Errorf("failed to load coupon source %d: %w", i+1, result.err)
		}
		total += len(result.coupons)
	}

	// Later sources override earlier ones for the same code.
	coupons := make(map[string]*models.Coupon, total)
	for _, result := range results {
		for i := range result.coupons {
			c := result.coupons[i]
			c.Code = NormalizeCode(c.Code)
			coupons[c.Code] = &c
		}
	}

	filter := newFilter(len(coupons))
	for code := range coupons {
		filter.AddString(code)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.coupons = coupons
	d.filter = filter
	d.sources = len(sources)

	return nil
}

func newFilter(n int) *bloom.BloomFilter {
	if n < minFilterCapacity {
		n = minFilterCapacity
	}
	return bloom.NewWithEstimates(uint(n), filterFalsePositiveRate)
}

func loadFromFile(path string) ([]models.Coupon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return parseCoupons(f)
}

// loadFromURL downloads and parses a coupon file from a URL
func loadFromURL(ctx context.Context, client *http.Client, url string) ([]models.Coupon, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return parseCoupons(resp.Body)
}

// parseCoupons reads JSON-lines coupon records, transparently gunzipping
// the stream when it starts with the gzip magic bytes.
func parseCoupons(r io.Reader) ([]models.Coupon, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && bytes.Equal(magic, []byte{0x1f, 0x8b}) {
		gzReader, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzReader.Close()
		return scanCoupons(gzReader)
	}
	return scanCoupons(br)
}

func scanCoupons(r io.Reader) ([]models.Coupon, error) {
	var coupons []models.Coupon
	scanner := bufio.NewScanner(r)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		var c models.Coupon
		if err := json.Unmarshal(line, &c); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if err := Validate(&c); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		coupons = append(coupons, c)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return coupons, nil
}

// Validate checks the structural rules of a coupon record.
func Validate(c *models.Coupon) error {
	if NormalizeCode(c.Code) == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidCoupon)
	}
	switch c.Scope {
	case models.ScopeGlobal:
		if c.VendorID != "" {
			return fmt.Errorf("%w: %s: global coupon must not name a vendor", ErrInvalidCoupon, c.Code)
		}
	case models.ScopeVendor:
		if c.VendorID == "" {
			return fmt.Errorf("%w: %s: vendor coupon requires vendorId", ErrInvalidCoupon, c.Code)
		}
	default:
		return fmt.Errorf("%w: %s: unknown scope %q", ErrInvalidCoupon, c.Code, c.Scope)
	}
	if c.DiscountType != models.DiscountPercentage && c.DiscountType != models.DiscountFixed {
		return fmt.Errorf("%w: %s: unknown discount type %q", ErrInvalidCoupon, c.Code, c.DiscountType)
	}
	if !(c.DiscountValue > 0) {
		return fmt.Errorf("%w: %s: discount value must be positive", ErrInvalidCoupon, c.Code)
	}
	if c.UsedCount < 0 {
		return fmt.Errorf("%w: %s: used count must not be negative", ErrInvalidCoupon, c.Code)
	}
	if !c.StartDate.IsZero() && !c.EndDate.IsZero() && c.EndDate.Before(c.StartDate) {
		return fmt.Errorf("%w: %s: end date precedes start date", ErrInvalidCoupon, c.Code)
	}
	return nil
}

// Put adds or replaces a single coupon.
func (d *Directory) Put(c models.Coupon) error {
	if err := Validate(&c); err != nil {
		return err
	}
	c.Code = NormalizeCode(c.Code)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.coupons[c.Code] = &c
	d.filter.AddString(c.Code)
	return nil
}

// Lookup returns a snapshot of the coupon with this code, ignoring case.
func (d *Directory) Lookup(ctx context.Context, code string) (*models.Coupon, error) {
	key := NormalizeCode(code)
	if key == "" {
		return nil, ErrCouponNotFound
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.filter.TestString(key) {
		return nil, ErrCouponNotFound
	}
	c, ok := d.coupons[key]
	if !ok {
		return nil, ErrCouponNotFound
	}

	snapshot := *c
	return &snapshot, nil
}

// Usable looks a coupon up and checks that it is active and inside its
// date window at now.
func (d *Directory) Usable(ctx context.Context, code string, now time.Time) (*models.Coupon, error) {
	c, err := d.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := CheckWindow(c, now); err != nil {
		return c, err
	}
	return c, nil
}

// CheckWindow reports whether the coupon is active at now. Zero start or
// end dates leave that side of the window open.
func CheckWindow(c *models.Coupon, now time.Time) error {
	if !c.IsActive {
		return ErrCouponInactive
	}
	if !c.StartDate.IsZero() && now.Before(c.StartDate) {
		return ErrCouponNotStarted
	}
	if !c.EndDate.IsZero() && now.After(c.EndDate) {
		return ErrCouponExpired
	}
	return nil
}

// Redeem records one use of the coupon. The usage limit is checked and the
// count incremented under the same lock, so concurrent redemptions cannot
// overshoot it.
func (d *Directory) Redeem(ctx context.Context, code string) (*models.Coupon, error) {
	key := NormalizeCode(code)

	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.coupons[key]
	if !ok {
		return nil, ErrCouponNotFound
	}
	if c.LimitReached() {
		return nil, ErrUsageLimitReached
	}
	c.UsedCount++

	snapshot := *c
	return &snapshot, nil
}

// Release undoes a Redeem whose order could not be stored.
func (d *Directory) Release(ctx context.Context, code string) error {
	key := NormalizeCode(code)

	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.coupons[key]
	if !ok {
		return ErrCouponNotFound
	}
	if c.UsedCount > 0 {
		c.UsedCount--
	}
	return nil
}

// GetStats returns statistics about loaded coupons
func (d *Directory) GetStats() map[string]interface{} {
	d.mu.RLock()
	defer d.mu.RUnlock()

	active := 0
	exhausted := 0
	for _, c := range d.coupons {
		if c.IsActive {
			active++
		}
		if c.LimitReached() {
			exhausted++
		}
	}

	return map[string]interface{}{
		"total_sources":   d.sources,
		"total_coupons":   len(d.coupons),
		"active_coupons":  active,
		"exhausted_count": exhausted,
	}
}
