package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// URLGuard は外部URLの安全性検証と、SSRF防止付きHTTPクライアントの生成を行う。
// 書類URLの登録時とリンクチェック時の両方で使用される。
type URLGuard interface {
	// ValidateURL はDNS解決を伴わない静的な検証を行い、危険なURLの場合はエラーを返す。
	ValidateURL(rawURL string) error
	// NewSafeClient はプライベートIP等への接続を拒否するHTTPクライアントを生成する。
	// DNS解決後のIPアドレスも検証されるため、DNS再バインディングにも対応する。
	NewSafeClient(timeout time.Duration) *http.Client
}

// maxURLLength は受け付けるURLの最大長。
const maxURLLength = 2048

var allowedSchemes = []string{"http", "https"}

// blockedNetworks はValidateURLで拒否するネットワーク範囲。
var blockedNetworks = mustParseCIDRs(
	"10.0.0.0/8",     // RFC 1918
	"172.16.0.0/12",  // RFC 1918
	"192.168.0.0/16", // RFC 1918
	"100.64.0.0/10",  // CGNAT
	"127.0.0.0/8",    // ループバック
	"169.254.0.0/16", // リンクローカル（メタデータIPを含む）
	"0.0.0.0/8",
	"::1/128",
	"fe80::/10",
	"fc00::/7",
)

var blockedHostnames = []string{"localhost"}

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR %s: %v", cidr, err))
		}
		nets = append(nets, network)
	}
	return nets
}

type urlGuard struct {
	allowedPorts []int
}

// NewURLGuard はURLGuardを生成する。
func NewURLGuard() *urlGuard {
	return &urlGuard{allowedPorts: []int{80, 443}}
}

// ValidateURL はスキーム、長さ、ホストを検証する。
func (g *urlGuard) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}
	if len(rawURL) > maxURLLength {
		return fmt.Errorf("URL too long: %d > %d", len(rawURL), maxURLLength)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("disallowed scheme: %q", parsed.Scheme)
	}
	if parsed.User != nil {
		return fmt.Errorf("credentials in URL are not allowed")
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL")
	}

	if ip := net.ParseIP(host); ip != nil {
		for _, network := range blockedNetworks {
			if network.Contains(ip) {
				return fmt.Errorf("blocked IP address: %s", ip)
			}
		}
		return nil
	}

	lower := strings.ToLower(strings.TrimSuffix(host, "."))
	for _, blocked := range blockedHostnames {
		if lower == blocked || strings.HasSuffix(lower, "."+blocked) {
			return fmt.Errorf("blocked host: %s", host)
		}
	}
	return nil
}

// NewSafeClient はsafeurlでラップしたHTTPクライアントを生成する。
func (g *urlGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(g.allowedPorts...).
		Build()

	return safeurl.Client(config).Client
}

// compile-time interface check
var _ URLGuard = (*urlGuard)(nil)
