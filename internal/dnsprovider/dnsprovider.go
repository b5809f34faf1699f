// Package dnsprovider infers the DNS host of a domain from its nameserver names.
package dnsprovider

import (
	"path"
	"strings"
)

type Provider string

const (
	Unknown      Provider = "Unknown"
	Cloudflare   Provider = "Cloudflare"
	Porkbun      Provider = "Porkbun"
	Route53      Provider = "Route 53"
	GoogleCloud  Provider = "Google Cloud DNS"
	DigitalOcean Provider = "DigitalOcean"
	Vercel       Provider = "Vercel"
	NS1          Provider = "NS1"
)

func (p Provider) String() string {
	return string(p)
}

type rule struct {
	provider Provider
	patterns []string
}

// rules holds shell patterns matched against lower-cased nameserver names with the
// trailing root dot removed.
var rules = []rule{
	{Cloudflare, []string{"*.ns.cloudflare.com"}},
	{Porkbun, []string{"*.ns.porkbun.com", "*.porkbun.com"}},
	{Route53, []string{"ns-*.awsdns-*"}},
	{GoogleCloud, []string{"ns-cloud-*.googledomains.com"}},
	{DigitalOcean, []string{"ns*.digitalocean.com"}},
	{Vercel, []string{"*.vercel-dns.com"}},
	{NS1, []string{"*.nsone.net"}},
}

// Classify returns the provider every nameserver belongs to. An empty list, an
// unrecognized name or a mix of providers is Unknown.
func Classify(nameservers []string) Provider {
	if len(nameservers) == 0 {
		return Unknown
	}

	var found Provider
	for _, ns := range nameservers {
		p := match(ns)
		if p == Unknown {
			return Unknown
		}
		if found != "" && p != found {
			return Unknown
		}
		found = p
	}
	return found
}

func match(nameserver string) Provider {
	name := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(nameserver)), ".")
	if name == "" {
		return Unknown
	}
	for _, r := range rules {
		for _, pattern := range r.patterns {
			if ok, _ := path.Match(pattern, name); ok {
				return r.provider
			}
		}
	}
	return Unknown
}
