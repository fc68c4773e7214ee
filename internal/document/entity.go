package document

import (
	"time"

	"github.com/google/uuid"
)

// EntityKind enumerates the three entity flavors a portfolio can be rooted in.
type EntityKind string

const (
	EntityPerson   EntityKind = "person"
	EntityMinistry EntityKind = "ministry"
	EntityChurch   EntityKind = "church"
)

// Entity is implemented by the documents that can root a portfolio. Identity
// fields are immutable; renewal reissues the document under the same ID.
type Entity interface {
	Document
	EntityKind() EntityKind
}

// Person is a natural person entity.
type Person struct {
	Header
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
	Born       string `json:"born"` // ISO date, immutable
}

// PersonData carries the identity fields for a new person portfolio.
type PersonData struct {
	GivenName  string
	FamilyName string
	Born       string
}

// NewPerson issues a self-describing person entity. The entity is its own
// issuer: the document id doubles as the entity id.
func NewPerson(data PersonData) *Person {
	p := &Person{
		Header:     newHeader(KindPerson, uuid.Nil, ExpiryEntity),
		GivenName:  data.GivenName,
		FamilyName: data.FamilyName,
		Born:       data.Born,
	}
	p.Issuer = p.ID
	return p
}

func (p *Person) EntityKind() EntityKind { return EntityPerson }

func (p *Person) Export() map[string]string {
	m := make(map[string]string)
	p.exportInto(m)
	m["givenName"] = p.GivenName
	m["familyName"] = p.FamilyName
	m["born"] = p.Born
	return m
}

func (p *Person) ApplyRules() error {
	c := &ruleCollector{kind: KindPerson}
	p.baseRules(c, ExpiryEntity)
	p.checkKind(c, KindPerson)
	if p.GivenName == "" {
		c.fail("given-name-required")
	}
	if p.FamilyName == "" {
		c.fail("family-name-required")
	}
	if p.Born != "" {
		if _, err := time.Parse("2006-01-02", p.Born); err != nil {
			c.fail("born-date-invalid")
		}
	}
	if p.Issuer != p.ID {
		c.fail("entity-not-self-issued")
	}
	return c.err()
}

// Ministry is an organizational entity operating under a church.
type Ministry struct {
	Header
	Ministry string `json:"ministry"`
	Vision   string `json:"vision,omitempty"`
	Founded  string `json:"founded"`
}

// MinistryData carries the identity fields for a new ministry portfolio.
type MinistryData struct {
	Ministry string
	Vision   string
	Founded  string
}

func NewMinistry(data MinistryData) *Ministry {
	m := &Ministry{
		Header:   newHeader(KindMinistry, uuid.Nil, ExpiryEntity),
		Ministry: data.Ministry,
		Vision:   data.Vision,
		Founded:  data.Founded,
	}
	m.Issuer = m.ID
	return m
}

func (m *Ministry) EntityKind() EntityKind { return EntityMinistry }

func (m *Ministry) Export() map[string]string {
	out := make(map[string]string)
	m.exportInto(out)
	out["ministry"] = m.Ministry
	out["vision"] = m.Vision
	out["founded"] = m.Founded
	return out
}

func (m *Ministry) ApplyRules() error {
	c := &ruleCollector{kind: KindMinistry}
	m.baseRules(c, ExpiryEntity)
	m.checkKind(c, KindMinistry)
	if m.Ministry == "" {
		c.fail("ministry-name-required")
	}
	if m.Issuer != m.ID {
		c.fail("entity-not-self-issued")
	}
	return c.err()
}

// Church is a congregation entity, the trust anchor of a routing domain.
type Church struct {
	Header
	City    string `json:"city"`
	Region  string `json:"region,omitempty"`
	Country string `json:"country,omitempty"`
	Founded string `json:"founded"`
}

// ChurchData carries the identity fields for a new church portfolio.
type ChurchData struct {
	City    string
	Region  string
	Country string
	Founded string
}

func NewChurch(data ChurchData) *Church {
	ch := &Church{
		Header:  newHeader(KindChurch, uuid.Nil, ExpiryEntity),
		City:    data.City,
		Region:  data.Region,
		Country: data.Country,
		Founded: data.Founded,
	}
	ch.Issuer = ch.ID
	return ch
}

func (ch *Church) EntityKind() EntityKind { return EntityChurch }

func (ch *Church) Export() map[string]string {
	out := make(map[string]string)
	ch.exportInto(out)
	out["city"] = ch.City
	out["region"] = ch.Region
	out["country"] = ch.Country
	out["founded"] = ch.Founded
	return out
}

func (ch *Church) ApplyRules() error {
	c := &ruleCollector{kind: KindChurch}
	ch.baseRules(c, ExpiryEntity)
	ch.checkKind(c, KindChurch)
	if ch.City == "" {
		c.fail("city-required")
	}
	if ch.Issuer != ch.ID {
		c.fail("entity-not-self-issued")
	}
	return c.err()
}
