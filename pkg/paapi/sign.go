package paapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

const (
	signingService   = "ProductAdvertisingAPI"
	signingAlgorithm = "AWS4-HMAC-SHA256"
)

// hostRegions maps PA-API endpoints to their signing region.
var hostRegions = map[string]string{
	"webservices.amazon.com":    "us-east-1",
	"webservices.amazon.co.uk":  "eu-west-1",
	"webservices.amazon.de":     "eu-west-1",
	"webservices.amazon.fr":     "eu-west-1",
	"webservices.amazon.it":     "eu-west-1",
	"webservices.amazon.es":     "eu-west-1",
	"webservices.amazon.ca":     "us-east-1",
	"webservices.amazon.co.jp":  "us-west-2",
	"webservices.amazon.com.au": "us-west-2",
	"webservices.amazon.in":     "eu-west-1",
}

// SigV4Signer signs PA-API requests with AWS Signature Version 4.
type SigV4Signer struct {
	accessKey string
	secretKey string
	region    string
	now       func() time.Time
}

// NewSigV4Signer creates a signer for the given endpoint host. Unknown
// hosts sign for us-east-1.
func NewSigV4Signer(accessKey, secretKey, host string) *SigV4Signer {
	region, ok := hostRegions[host]
	if !ok {
		region = "us-east-1"
	}
	return &SigV4Signer{
		accessKey: accessKey,
		secretKey: secretKey,
		region:    region,
		now:       time.Now,
	}
}

// Sign adds the X-Amz-Date and Authorization headers to req.
func (s *SigV4Signer) Sign(req *http.Request, payload []byte) error {
	t := s.now().UTC()
	amzDate := t.Format("20060102T150405Z")
	dateStamp := t.Format("20060102")

	req.Header.Set("X-Amz-Date", amzDate)
	req.Header.Set("Host", req.URL.Host)

	payloadHash := hashHex(payload)
	canonicalHeaders, signedHeaders := canonicalizeHeaders(req)

	canonicalRequest := strings.Join([]string{
		req.Method,
		req.URL.EscapedPath(),
		req.URL.RawQuery,
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	scope := strings.Join([]string{dateStamp, s.region, signingService, "aws4_request"}, "/")
	stringToSign := strings.Join([]string{
		signingAlgorithm,
		amzDate,
		scope,
		hashHex([]byte(canonicalRequest)),
	}, "\n")

	key := signingKey(s.secretKey, dateStamp, s.region)
	signature := hex.EncodeToString(hmacSHA256(key, stringToSign))

	req.Header.Set("Authorization", fmt.Sprintf(
		"%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		signingAlgorithm, s.accessKey, scope, signedHeaders, signature,
	))
	return nil
}

// canonicalizeHeaders returns the canonical header block and the
// semicolon-joined signed header list, both lowercase and sorted.
func canonicalizeHeaders(req *http.Request) (string, string) {
	names := make([]string, 0, len(req.Header)+1)
	values := map[string]string{"host": req.URL.Host}
	names = append(names, "host")
	for name, vals := range req.Header {
		lower := strings.ToLower(name)
		if lower == "host" || lower == "authorization" {
			continue
		}
		names = append(names, lower)
		values[lower] = strings.TrimSpace(strings.Join(vals, ","))
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteString(":")
		b.WriteString(values[name])
		b.WriteString("\n")
	}
	return b.String(), strings.Join(names, ";")
}

func signingKey(secret, dateStamp, region string) []byte {
	k := hmacSHA256([]byte("AWS4"+secret), dateStamp)
	k = hmacSHA256(k, region)
	k = hmacSHA256(k, signingService)
	return hmacSHA256(k, "aws4_request")
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
