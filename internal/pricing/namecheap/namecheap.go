// Package namecheap quotes domain pricing from the Namecheap XML API. Premium
// prices come straight from domains.check; standard prices need a second
// users.getPricing call for the TLD, which is cached per TLD.
package namecheap

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tldscout/tldscout/internal/pricing"
)

const defaultBaseURL = "https://api.namecheap.com/xml.response"

type Options struct {
	APIUser  string
	APIKey   string
	Username string
	ClientIP string
	BaseURL  string

	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

type Client struct {
	opts Options
	http *resty.Client

	mu       sync.Mutex
	tldPrice map[string]tldPricing
}

type tldPricing struct {
	register float64
	renew    float64
}

func NewClient(opts Options) (*Client, error) {
	opts.APIUser = strings.TrimSpace(opts.APIUser)
	opts.APIKey = strings.TrimSpace(opts.APIKey)
	if opts.APIUser == "" || opts.APIKey == "" {
		return nil, fmt.Errorf("namecheap: missing api credentials (set NAMECHEAP_API_USER and NAMECHEAP_API_KEY)")
	}
	if opts.Username == "" {
		opts.Username = opts.APIUser
	}
	if opts.ClientIP == "" {
		opts.ClientIP = "127.0.0.1"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 200 * time.Millisecond
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetRetryCount(opts.RetryAttempts)
	client.SetRetryWaitTime(opts.RetryDelay)
	client.SetRetryMaxWaitTime(opts.RetryDelay * 2)
	client.SetHeader("User-Agent", "tldscout/pricing-namecheap")

	return &Client{
		opts:     opts,
		http:     client,
		tldPrice: make(map[string]tldPricing, 16),
	}, nil
}

func (c *Client) Name() string { return "namecheap" }

func (c *Client) Quote(ctx context.Context, domain string) (pricing.Quote, error) {
	domain = strings.TrimSpace(strings.ToLower(domain))
	i := strings.IndexByte(domain, '.')
	if i <= 0 || i == len(domain)-1 {
		return pricing.Quote{}, fmt.Errorf("namecheap: invalid domain %q", domain)
	}
	tld := domain[i+1:]

	check, err := c.checkDomain(ctx, domain)
	if err != nil {
		return pricing.Quote{}, err
	}
	if !check.Available {
		return pricing.Quote{}, fmt.Errorf("namecheap: %q not purchasable", domain)
	}

	q := pricing.Quote{
		Currency:     "USD",
		Registrar:    c.Name(),
		RegistrarURL: "https://www.namecheap.com/domains/registration/results/?domain=" + domain,
		Premium:      check.IsPremiumName,
	}

	if check.IsPremiumName {
		q.FirstYear = check.PremiumRegistrationPrice
		q.Renewal = check.PremiumRenewalPrice
		if q.Renewal == 0 {
			q.Renewal = q.FirstYear
		}
		q.Notes = "registry premium pricing"
		return q, nil
	}

	p, err := c.pricingForTLD(ctx, tld)
	if err != nil {
		return pricing.Quote{}, err
	}
	q.FirstYear = p.register
	q.Renewal = p.renew
	return q, nil
}

type apiResponse struct {
	Status string `xml:"Status,attr"`
	Errors struct {
		Error []struct {
			Number string `xml:"Number,attr"`
			Text   string `xml:",chardata"`
		} `xml:"Error"`
	} `xml:"Errors"`
	CommandResponse struct {
		DomainCheckResult []domainCheckResult `xml:"DomainCheckResult"`
		PricingResult     pricingResult       `xml:"UserGetPricingResult"`
	} `xml:"CommandResponse"`
}

type domainCheckResult struct {
	Domain                   string  `xml:"Domain,attr"`
	Available                bool    `xml:"Available,attr"`
	IsPremiumName            bool    `xml:"IsPremiumName,attr"`
	PremiumRegistrationPrice float64 `xml:"PremiumRegistrationPrice,attr"`
	PremiumRenewalPrice      float64 `xml:"PremiumRenewalPrice,attr"`
}

type pricingResult struct {
	ProductTypes []struct {
		Name       string `xml:"Name,attr"`
		Categories []struct {
			Name     string `xml:"Name,attr"`
			Products []struct {
				Name   string     `xml:"Name,attr"`
				Prices []apiPrice `xml:"Price"`
			} `xml:"Product"`
		} `xml:"ProductCategory"`
	} `xml:"ProductType"`
}

type apiPrice struct {
	Duration     string `xml:"Duration,attr"`
	DurationType string `xml:"DurationType,attr"`
	Price        string `xml:"Price,attr"`
}

func (c *Client) checkDomain(ctx context.Context, domain string) (domainCheckResult, error) {
	var decoded apiResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(c.baseParams("namecheap.domains.check")).
		SetQueryParam("DomainList", domain).
		SetResult(&decoded).
		Get(c.opts.BaseURL)
	if err != nil {
		return domainCheckResult{}, fmt.Errorf("namecheap: %w", err)
	}
	if err := apiErr(resp, &decoded); err != nil {
		return domainCheckResult{}, err
	}

	for _, r := range decoded.CommandResponse.DomainCheckResult {
		if strings.EqualFold(r.Domain, domain) {
			return r, nil
		}
	}
	return domainCheckResult{}, fmt.Errorf("namecheap: no check result for %q", domain)
}

func (c *Client) pricingForTLD(ctx context.Context, tld string) (tldPricing, error) {
	c.mu.Lock()
	if p, ok := c.tldPrice[tld]; ok {
		c.mu.Unlock()
		return p, nil
	}
	c.mu.Unlock()

	var decoded apiResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(c.baseParams("namecheap.users.getPricing")).
		SetQueryParams(map[string]string{
			"ProductType": "DOMAIN",
			"ProductName": strings.ToUpper(tld),
		}).
		SetResult(&decoded).
		Get(c.opts.BaseURL)
	if err != nil {
		return tldPricing{}, fmt.Errorf("namecheap: %w", err)
	}
	if err := apiErr(resp, &decoded); err != nil {
		return tldPricing{}, err
	}

	p := tldPricing{register: -1, renew: -1}
	for _, pt := range decoded.CommandResponse.PricingResult.ProductTypes {
		if !strings.EqualFold(pt.Name, "domains") {
			continue
		}
		for _, cat := range pt.Categories {
			for _, prod := range cat.Products {
				if !strings.EqualFold(prod.Name, tld) {
					continue
				}
				price, ok := oneYearPrice(prod.Prices)
				if !ok {
					continue
				}
				switch strings.ToLower(cat.Name) {
				case "register":
					p.register = price
				case "renew":
					p.renew = price
				}
			}
		}
	}
	if p.register < 0 {
		return tldPricing{}, fmt.Errorf("namecheap: no pricing for tld %q", tld)
	}
	if p.renew < 0 {
		p.renew = p.register
	}

	c.mu.Lock()
	c.tldPrice[tld] = p
	c.mu.Unlock()
	return p, nil
}

func oneYearPrice(prices []apiPrice) (float64, bool) {
	for _, pr := range prices {
		if pr.Duration != "1" || !strings.EqualFold(pr.DurationType, "YEAR") {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(pr.Price), 64)
		if err != nil || v < 0 {
			continue
		}
		return v, true
	}
	return 0, false
}

func (c *Client) baseParams(command string) map[string]string {
	return map[string]string{
		"ApiUser":  c.opts.APIUser,
		"ApiKey":   c.opts.APIKey,
		"UserName": c.opts.Username,
		"ClientIp": c.opts.ClientIP,
		"Command":  command,
	}
}

func apiErr(resp *resty.Response, decoded *apiResponse) error {
	if resp.StatusCode() != 200 {
		return fmt.Errorf("namecheap: http %d", resp.StatusCode())
	}
	if strings.EqualFold(decoded.Status, "OK") {
		return nil
	}
	if errs := decoded.Errors.Error; len(errs) > 0 {
		return fmt.Errorf("namecheap: api error %s: %s", errs[0].Number, strings.TrimSpace(errs[0].Text))
	}
	return fmt.Errorf("namecheap: api status %q", decoded.Status)
}
