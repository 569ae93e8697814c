package authz

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cedadev/authgate/internal/identity"
	"github.com/cedadev/authgate/internal/resource"
)

const (
	samlProtocolNS  = "urn:oasis:names:tc:SAML:2.0:protocol"
	samlAssertionNS = "urn:oasis:names:tc:SAML:2.0:assertion"
	soapEnvelopeNS  = "http://schemas.xmlsoap.org/soap/envelope/"

	issuerFormatX509 = "urn:oasis:names:tc:SAML:1.1:nameid-format:X509SubjectName"
	nameIDFormat     = "urn:esg:openid"
	actionNamespace  = "urn:oasis:names:tc:SAML:1.0:action:rwedc"
)

// SAML sends SAML 2.0 AuthzDecisionQuery envelopes over a SOAP binding and
// maps the first decision statement of the first assertion in the response.
type SAML struct {
	// ServiceURL is the decision service SOAP endpoint.
	ServiceURL string

	// Issuer is the X.509 subject DN this gateway identifies itself with.
	Issuer string

	Client *http.Client
}

func (s *SAML) Authorize(ctx context.Context, id *identity.Identity, res resource.Descriptor) (bool, error) {
	if res.URI == "" {
		return true, nil
	}

	body, err := s.buildQuery(id, res)
	if err != nil {
		return false, fmt.Errorf("%w: build query: %v", ErrDecisionService, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.ServiceURL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("%w: build request: %v", ErrDecisionService, err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	resp, err := s.httpClient().Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: query %s: %v", ErrDecisionService, s.ServiceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: decision service returned %d", ErrDecisionService, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false, fmt.Errorf("%w: read response: %v", ErrDecisionService, err)
	}

	decision, err := parseDecision(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDecisionService, err)
	}

	// The mapping is total: any code other than Permit or Deny signals a
	// misbehaving decision service and must stay visible to the operator.
	switch decision {
	case Permit:
		return true, nil
	case Deny:
		return false, nil
	case Indeterminate:
		return false, fmt.Errorf("%w: indeterminate decision", ErrDecisionService)
	default:
		return false, fmt.Errorf("%w: unknown decision code %q", ErrDecisionService, decision)
	}
}

type samlIssuer struct {
	Format string `xml:"Format,attr"`
	Value  string `xml:",chardata"`
}

type samlNameID struct {
	Format string `xml:"Format,attr"`
	Value  string `xml:",chardata"`
}

type samlSubject struct {
	NameID samlNameID `xml:"saml:NameID"`
}

type samlAction struct {
	Namespace string `xml:"Namespace,attr"`
	Value     string `xml:",chardata"`
}

type authzDecisionQuery struct {
	XMLName      xml.Name    `xml:"samlp:AuthzDecisionQuery"`
	ProtocolNS   string      `xml:"xmlns:samlp,attr"`
	AssertionNS  string      `xml:"xmlns:saml,attr"`
	ID           string      `xml:"ID,attr"`
	Version      string      `xml:"Version,attr"`
	IssueInstant string      `xml:"IssueInstant,attr"`
	Resource     string      `xml:"Resource,attr"`
	Issuer       samlIssuer  `xml:"saml:Issuer"`
	Subject      samlSubject `xml:"saml:Subject"`
	Action       samlAction  `xml:"saml:Action"`
}

type soapRequestEnvelope struct {
	XMLName xml.Name `xml:"soap11:Envelope"`
	SoapNS  string   `xml:"xmlns:soap11,attr"`
	Body    struct {
		Query authzDecisionQuery
	} `xml:"soap11:Body"`
}

// buildQuery assembles the decision-query envelope: fresh uuid and issue
// instant, this gateway as issuer, the caller's subject id (empty for
// anonymous callers) and the requested action.
func (s *SAML) buildQuery(id *identity.Identity, res resource.Descriptor) ([]byte, error) {
	subject := ""
	if id != nil {
		subject = id.Subject()
	}

	env := soapRequestEnvelope{SoapNS: soapEnvelopeNS}
	env.Body.Query = authzDecisionQuery{
		ProtocolNS:   samlProtocolNS,
		AssertionNS:  samlAssertionNS,
		ID:           uuid.NewString(),
		Version:      "2.0",
		IssueInstant: time.Now().UTC().Format(time.RFC3339),
		Resource:     res.URI,
		Issuer: samlIssuer{
			Format: issuerFormatX509,
			Value:  s.Issuer,
		},
		Subject: samlSubject{
			NameID: samlNameID{Format: nameIDFormat, Value: subject},
		},
		Action: samlAction{
			Namespace: actionNamespace,
			Value:     string(res.Action),
		},
	}

	raw, err := xml.Marshal(env)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), raw...), nil
}

// Response parsing matches by local element name so any namespace prefixing
// the service uses is accepted.
type soapResponseEnvelope struct {
	Body struct {
		Response struct {
			Assertions []struct {
				Statements []struct {
					Decision string `xml:"Decision,attr"`
				} `xml:"AuthzDecisionStatement"`
			} `xml:"Assertion"`
		} `xml:"Response"`
	} `xml:"Body"`
}

func parseDecision(raw []byte) (Decision, error) {
	var env soapResponseEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("parse response envelope: %v", err)
	}
	for _, assertion := range env.Body.Response.Assertions {
		for _, stmt := range assertion.Statements {
			return Decision(stmt.Decision), nil
		}
	}
	return "", fmt.Errorf("response carries no decision statement")
}

func (s *SAML) httpClient() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}
