package directory

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-ldap/ldap/v3"
)

// ErrNotFound reports that a directory lookup matched nothing.
var ErrNotFound = errors.New("directory object not found")

// Session is an authenticated connection to a domain controller, scoped
// to one naming context. All queries and mutations go through it.
type Session struct {
	host     string
	baseDN   string
	pageSize uint32
	logger   *slog.Logger
	conn     *ldap.Conn
	authzID  string
}

type Option func(*Session)

func WithPageSize(n uint32) Option {
	return func(s *Session) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewSession(host, baseDN string, opts ...Option) *Session {
	s := &Session{
		host:     host,
		baseDN:   baseDN,
		pageSize: 1000,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect dials the domain controller, binds and confirms the bind with a
// WhoAmI exchange.
func (s *Session) Connect(username, password string) error {
	bindURL := fmt.Sprintf("ldap://%s:389", s.host)
	conn, err := ldap.DialURL(bindURL)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", bindURL, err)
	}

	// TODO: LDAPS, IWA/GSSAPI, etc
	if err := conn.Bind(username, password); err != nil {
		conn.Close()
		return fmt.Errorf("binding as %s: %w", username, err)
	}

	res, err := conn.WhoAmI(nil)
	if err != nil {
		conn.Close()
		return fmt.Errorf("whoami exchange: %w", err)
	}

	s.conn = conn
	s.authzID = res.AuthzID
	s.logger.Info("authenticated to directory", "url", bindURL, "authz_id", res.AuthzID)
	return nil
}

func (s *Session) Close() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

func (s *Session) BaseDN() string {
	return s.baseDN
}

// AuthzID is the authorization identity the directory reported for the
// bind, e.g. "u:CORP\\jdoe".
func (s *Session) AuthzID() string {
	return s.authzID
}

// RootDSE reads the requested attributes from the root DSE.
func (s *Session) RootDSE(attrs ...string) (*ldap.Entry, error) {
	req := ldap.NewSearchRequest(
		"",
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		0, 0, false,
		"(objectClass=*)",
		attrs,
		nil,
	)
	res, err := s.conn.Search(req)
	if err != nil {
		return nil, fmt.Errorf("reading root DSE: %w", err)
	}
	if len(res.Entries) == 0 {
		return nil, fmt.Errorf("root DSE returned no entry")
	}
	return res.Entries[0], nil
}

// searchSubtree performs a paged subtree search under base.
func (s *Session) searchSubtree(base, filter string, attrs []string, controls ...ldap.Control) ([]*ldap.Entry, error) {
	req := ldap.NewSearchRequest(
		base,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, 0, false,
		filter,
		attrs,
		controls,
	)
	res, err := s.conn.SearchWithPaging(req, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("LDAP search under %s: %w", base, err)
	}
	return res.Entries, nil
}

// searchOne returns the single entry matching filter under base, or
// ErrNotFound. More than one match is an error: callers use this for
// lookups that must be unambiguous.
func (s *Session) searchOne(base, filter string, attrs []string, controls ...ldap.Control) (*ldap.Entry, error) {
	entries, err := s.searchSubtree(base, filter, attrs, controls...)
	if err != nil {
		return nil, err
	}
	switch len(entries) {
	case 0:
		return nil, fmt.Errorf("%w: %s under %s", ErrNotFound, filter, base)
	case 1:
		return entries[0], nil
	default:
		return nil, fmt.Errorf("filter %s under %s matched %d entries, want 1", filter, base, len(entries))
	}
}

// readEntry reads one object by DN. A missing object is ErrNotFound.
func (s *Session) readEntry(dn string, attrs ...string) (*ldap.Entry, error) {
	req := ldap.NewSearchRequest(
		dn,
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		0, 0, false,
		"(objectClass=*)",
		attrs,
		nil,
	)
	res, err := s.conn.Search(req)
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, dn)
		}
		return nil, fmt.Errorf("reading %s: %w", dn, err)
	}
	if len(res.Entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, dn)
	}
	return res.Entries[0], nil
}

// modifyReplace replaces one attribute's values on an object. An empty
// values slice clears the attribute.
func (s *Session) modifyReplace(dn, attr string, values []string) error {
	req := ldap.NewModifyRequest(dn, nil)
	req.Replace(attr, values)
	return s.conn.Modify(req)
}
