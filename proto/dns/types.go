package dns

import "github.com/miekg/dns"

// qtypeNames/qclassNames are small, closed lookup tables. Names and
// numeric values are taken from
// github.com/miekg/dns's constants rather than hand-copied, so this
// table can never drift from the IANA-registered values.
var qtypeNames = map[uint16]string{
	dns.TypeA:     "A",
	dns.TypeNS:    "NS",
	dns.TypeMD:    "MD",
	dns.TypeMF:    "MF",
	dns.TypeCNAME: "CNAME",
	dns.TypeSOA:   "SOA",
	dns.TypeMB:    "MB",
	dns.TypeMG:    "MG",
	dns.TypeMR:    "MR",
	dns.TypeNULL:  "NULL",
	11:            "WKS", // dns.TypeWKS is not exported by miekg/dns
	dns.TypePTR:   "PTR",
	dns.TypeHINFO: "HINFO",
	dns.TypeMINFO: "MINFO",
	dns.TypeMX:    "MX",
	dns.TypeTXT:   "TXT",
	dns.TypeAXFR:  "AXFR",
	dns.TypeMAILB: "MAILB",
	dns.TypeMAILA: "MAILA",
	dns.TypeANY:   "ANY",
}

var qclassNames = map[uint16]string{
	dns.ClassINET:   "IN",
	dns.ClassCSNET:  "CS",
	dns.ClassCHAOS:  "CH",
	dns.ClassHESIOD: "HS",
	dns.ClassANY:    "ANY",
}

func qtypeName(t uint16) (string, bool) {
	n, ok := qtypeNames[t]
	return n, ok
}

func qclassName(c uint16) (string, bool) {
	n, ok := qclassNames[c]
	return n, ok
}
