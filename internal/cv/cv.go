package cv

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	neturl "net/url"
	"strings"
	"syscall"
	"time"

	"github.com/docker/go-units"
	"github.com/go-resty/resty/v2"
	"github.com/karlseguin/ccache/v2"
	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	lf "github.com/bigredeye/catalystx/internal/logfield"
	"github.com/bigredeye/catalystx/internal/metrics"
)

var (
	ErrNotPDF    = errors.New("CV is not a PDF document")
	ErrNoCV      = errors.New("Student has not uploaded a CV")
	ErrTooLarge  = errors.New("CV exceeds the size limit")
	// ErrUnsafeURL is returned for non-http schemes and for hosts in private or local networks.
	ErrUnsafeURL = errors.New("CV URL is not allowed")
)

type FetchError struct {
	URL    string
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("Failed to fetch CV %s: status %d", e.URL, e.Status)
}

type Config struct {
	MaxSize  string
	CacheTTL time.Duration
	Timeout  time.Duration
	// AllowPrivate permits loopback and private network hosts.
	AllowPrivate bool
}

// Page is one page of a CV rendered as plain text.
type Page struct {
	URL   string `json:"url"`
	Pages int    `json:"pages"`
	Page  int    `json:"page"`
	Text  string `json:"text"`
}

type document struct {
	data  []byte
	pages int
}

type Inspector struct {
	client   *resty.Client
	cache    *ccache.Cache
	maxSize  int64
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewInspector(logger *zap.Logger, config Config) (*Inspector, error) {
	maxSize, err := units.RAMInBytes(config.MaxSize)
	if err != nil {
		return nil, errors.Wrapf(err, "Invalid CV size limit %q", config.MaxSize)
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	if !config.AllowPrivate {
		dialer.Control = refusePrivate
	}
	client := resty.New().
		SetTransport(&http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConns:        16,
			IdleConnTimeout:     90 * time.Second,
		}).
		SetTimeout(config.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5), resty.RedirectPolicyFunc(checkRedirect))

	return &Inspector{
		client:   client,
		cache:    ccache.New(ccache.Configure().MaxSize(256)),
		maxSize:  maxSize,
		cacheTTL: config.CacheTTL,
		logger:   logger.With(lf.Module("cv")),
	}, nil
}

func (i *Inspector) Stop() {
	i.cache.Stop()
}

func checkScheme(u *neturl.URL) error {
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Wrapf(ErrUnsafeURL, "unsupported url %q", u.Redacted())
	}
	return nil
}

func checkRedirect(req *http.Request, _ []*http.Request) error {
	return checkScheme(req.URL)
}

// refusePrivate runs on every dial with the resolved address, so redirects and DNS answers are covered too.
func refusePrivate(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return errors.Wrapf(ErrUnsafeURL, "refusing to connect to %s", host)
	}
	return nil
}

// ClampPage keeps page inside [1, numPages].
func ClampPage(page, numPages int) int {
	if numPages < 1 {
		return 1
	}
	if page < 1 {
		return 1
	}
	if page > numPages {
		return numPages
	}
	return page
}

func (i *Inspector) Inspect(ctx context.Context, url string, page int) (*Page, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrNoCV
	}
	u, err := neturl.Parse(url)
	if err != nil {
		return nil, errors.Wrap(ErrUnsafeURL, err.Error())
	}
	if err := checkScheme(u); err != nil {
		return nil, err
	}

	item, err := i.cache.Fetch(url, i.cacheTTL, func() (interface{}, error) {
		return i.load(ctx, url)
	})
	if err != nil {
		return nil, err
	}
	doc := item.Value().(*document)

	page = ClampPage(page, doc.pages)
	text, err := pageText(doc, page)
	if err != nil {
		return nil, err
	}

	return &Page{
		URL:   url,
		Pages: doc.pages,
		Page:  page,
		Text:  text,
	}, nil
}

func (i *Inspector) load(ctx context.Context, url string) (*document, error) {
	started := time.Now()
	defer func() {
		metrics.CVFetchDuration.Observe(time.Since(started).Seconds())
	}()

	data, err := i.download(ctx, url)
	if err != nil {
		i.logger.Warn("Failed to download CV", lf.URL(url), zap.Error(err))
		return nil, err
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, ErrNotPDF
	}

	pages, err := countPages(data)
	if err != nil {
		return nil, err
	}

	i.logger.Debug("Loaded CV", lf.URL(url), zap.Int("pages", pages), zap.Int("bytes", len(data)))
	return &document{data: data, pages: pages}, nil
}

func (i *Inspector) download(ctx context.Context, url string) ([]byte, error) {
	resp, err := i.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to fetch CV")
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return nil, &FetchError{URL: url, Status: resp.StatusCode()}
	}
	if resp.RawResponse.ContentLength > i.maxSize {
		return nil, ErrTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(body, i.maxSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read CV")
	}
	if int64(len(data)) > i.maxSize {
		return nil, ErrTooLarge
	}
	return data, nil
}

func openPDF(data []byte) (*pdf.Reader, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(ErrNotPDF, err.Error())
	}
	return r, nil
}

// The pdf package panics on some malformed objects.
func recoverMalformed(err *error) {
	if r := recover(); r != nil {
		*err = errors.Wrapf(ErrNotPDF, "malformed document: %v", r)
	}
}

func countPages(data []byte) (pages int, err error) {
	defer recoverMalformed(&err)

	r, err := openPDF(data)
	if err != nil {
		return 0, err
	}
	pages = r.NumPage()
	if pages < 1 {
		return 0, errors.Wrap(ErrNotPDF, "document has no pages")
	}
	return pages, nil
}

func pageText(doc *document, page int) (text string, err error) {
	defer recoverMalformed(&err)

	r, err := openPDF(doc.data)
	if err != nil {
		return "", err
	}
	p := r.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	text, err = p.GetPlainText(nil)
	if err != nil {
		return "", errors.Wrapf(err, "Failed to extract text of page %d", page)
	}
	return strings.TrimSpace(text), nil
}
