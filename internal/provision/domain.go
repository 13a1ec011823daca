package provision

import (
	"fmt"
	"time"

	"github.com/miekg/dns"
)

// DomainChecker verifies that a school's derived domain actually resolves
// before accounts are created under it. Optional; controlled by config.
type DomainChecker struct {
	client   *dns.Client
	resolver string
}

func NewDomainChecker(resolver string) *DomainChecker {
	return &DomainChecker{
		client:   &dns.Client{Timeout: 5 * time.Second},
		resolver: resolver,
	}
}

func (d *DomainChecker) Verify(domain string) error {
	for _, qtype := range []uint16{dns.TypeMX, dns.TypeA} {
		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn(domain), qtype)

		r, _, err := d.client.Exchange(m, d.resolver)
		if err != nil {
			return fmt.Errorf("DNS query for %s failed: %w", domain, err)
		}
		if r.Rcode == dns.RcodeSuccess && len(r.Answer) > 0 {
			return nil
		}
	}
	return fmt.Errorf("domain %s has no MX or A records", domain)
}
