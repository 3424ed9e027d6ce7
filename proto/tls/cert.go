package tls

import (
	"fmt"
	"strings"
)

// DN is a parsed X.509 distinguished name, carrying only the
// attributes this dissector records.
type DN struct {
	CommonNames []string // ordered-set, lowercased
	Org         string
	OrgIsUTF8   bool
}

func (d *DN) addCommonName(name string) {
	for _, existing := range d.CommonNames {
		if existing == name {
			return
		}
	}
	d.CommonNames = append(d.CommonNames, name)
}

// Certificate is one extracted X.509 certificate's fields of interest.
type Certificate struct {
	Serial        []byte
	Issuer        DN
	Subject       DN
	AltNames      []string // ordered-set, lowercased
	SignatureHash []byte
}

func (c *Certificate) addAltName(name string) {
	for _, existing := range c.AltNames {
		if existing == name {
			return
		}
	}
	c.AltNames = append(c.AltNames, name)
}

// key returns the structural dedup key: the tuple
// (serial, issuer.common_names, subject.common_names, alt_names,
// org). Two certificates with equal keys are considered duplicates
// within one session.
func (c *Certificate) key() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%x|", c.Serial)
	sb.WriteString(strings.Join(c.Issuer.CommonNames, ","))
	sb.WriteByte('|')
	sb.WriteString(strings.Join(c.Subject.CommonNames, ","))
	sb.WriteByte('|')
	sb.WriteString(strings.Join(c.AltNames, ","))
	sb.WriteByte('|')
	sb.WriteString(c.Issuer.Org)
	sb.WriteByte('|')
	sb.WriteString(c.Subject.Org)
	return sb.String()
}

// CertSet is a session's deduplicated certificate collection.
type CertSet struct {
	byKey map[string]struct{}
	certs []*Certificate
}

// NewCertSet returns an empty set.
func NewCertSet() *CertSet {
	return &CertSet{byKey: make(map[string]struct{})}
}

// Add inserts cert if no structurally-equal certificate is already
// present, returning true if it was added.
func (cs *CertSet) Add(cert *Certificate) bool {
	k := cert.key()
	if _, ok := cs.byKey[k]; ok {
		return false
	}
	cs.byKey[k] = struct{}{}
	cs.certs = append(cs.certs, cert)
	return true
}

// Certs returns the certificates in insertion order.
func (cs *CertSet) Certs() []*Certificate { return cs.certs }

// Len reports how many distinct certificates are in the set.
func (cs *CertSet) Len() int { return len(cs.certs) }
