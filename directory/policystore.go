package directory

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/f0oster/gontsd"
	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"

	"dabastion/directory/ldapfilter"
)

// Active Directory stores durations as negative counts of 100-nanosecond
// units. MaxInt64 negated marks a lockout that never expires.
const lockoutNever = "-9223372036854775808"

// Registry client-side extension pair (tool GUID + CSE GUID). A policy
// object without it in gPCMachineExtensionNames is ignored by clients
// even when its registry.pol is well formed.
const registryCSEPair = "[{35378EAC-683F-11D2-A89A-00C04FBBCFA2}{D02B1F72-3407-48AE-BA88-E8213C6761F1}]"

// PSOParams are the managed attributes of a fine-grained password
// policy. Zero durations render as interval 0, not as "never".
type PSOParams struct {
	Precedence           int
	MinPasswordLength    int
	ComplexityEnabled    bool
	HistoryLength        int
	LockoutThreshold     int
	ObservationWindow    time.Duration
	LockoutDuration      time.Duration
	LockoutForever       bool
	MinPasswordAge       time.Duration
	MaxPasswordAge       time.Duration
	ReversibleEncryption bool
}

// psoManagedAttrs lists every attribute this tool owns on a password
// settings object, in schema display order. Reads and writes both walk
// this list so the two sides cannot drift apart.
var psoManagedAttrs = []string{
	"msDS-PasswordSettingsPrecedence",
	"msDS-PasswordReversibleEncryptionEnabled",
	"msDS-PasswordHistoryLength",
	"msDS-PasswordComplexityEnabled",
	"msDS-MinimumPasswordLength",
	"msDS-MinimumPasswordAge",
	"msDS-MaximumPasswordAge",
	"msDS-LockoutThreshold",
	"msDS-LockoutObservationWindow",
	"msDS-LockoutDuration",
}

// Attributes renders the params in directory syntax.
func (p PSOParams) Attributes() map[string][]string {
	lockoutDuration := intervalString(p.LockoutDuration)
	if p.LockoutForever {
		lockoutDuration = lockoutNever
	}
	return map[string][]string{
		"msDS-PasswordSettingsPrecedence":          {strconv.Itoa(p.Precedence)},
		"msDS-PasswordReversibleEncryptionEnabled": {boolString(p.ReversibleEncryption)},
		"msDS-PasswordHistoryLength":               {strconv.Itoa(p.HistoryLength)},
		"msDS-PasswordComplexityEnabled":           {boolString(p.ComplexityEnabled)},
		"msDS-MinimumPasswordLength":               {strconv.Itoa(p.MinPasswordLength)},
		"msDS-MinimumPasswordAge":                  {intervalString(p.MinPasswordAge)},
		"msDS-MaximumPasswordAge":                  {intervalString(p.MaxPasswordAge)},
		"msDS-LockoutThreshold":                    {strconv.Itoa(p.LockoutThreshold)},
		"msDS-LockoutObservationWindow":            {intervalString(p.ObservationWindow)},
		"msDS-LockoutDuration":                     {lockoutDuration},
	}
}

func intervalString(d time.Duration) string {
	return strconv.FormatInt(-(d.Nanoseconds() / 100), 10)
}

func boolString(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// PSOInfo describes a password settings object as stored.
type PSOInfo struct {
	DN       string
	CN       string
	OwnerSID string
	// Attrs holds the managed attributes, keyed as in psoManagedAttrs.
	Attrs map[string][]string
}

// GPOInfo describes a group policy container and its SYSVOL folder.
type GPOInfo struct {
	DN          string
	CN          string
	DisplayName string
	FileSysPath string
	OwnerSID    string
}

func (s *Session) psoContainerDN() string {
	return "CN=Password Settings Container,CN=System," + s.baseDN
}

func (s *Session) policiesDN() string {
	return "CN=Policies,CN=System," + s.baseDN
}

func (s *Session) dcOUDN() string {
	return "OU=Domain Controllers," + s.baseDN
}

// FindPSO looks a password settings object up by CN. ErrNotFound when
// it does not exist.
func (s *Session) FindPSO(cn string) (*PSOInfo, error) {
	filter := ldapfilter.And(
		ldapfilter.Eq("objectClass", "msDS-PasswordSettings"),
		ldapfilter.Eq("cn", cn),
	)
	attrs := append([]string{"cn", "nTSecurityDescriptor"}, psoManagedAttrs...)
	entry, err := s.searchOne(s.psoContainerDN(), filter.String(), attrs, sdFlagsControl())
	if err != nil {
		return nil, err
	}
	info := &PSOInfo{
		DN:       entry.DN,
		CN:       entry.GetAttributeValue("cn"),
		OwnerSID: ownerSIDString(entry.GetRawAttributeValue("nTSecurityDescriptor")),
		Attrs:    make(map[string][]string, len(psoManagedAttrs)),
	}
	for _, name := range psoManagedAttrs {
		if vals := entry.GetAttributeValues(name); len(vals) > 0 {
			info.Attrs[name] = vals
		}
	}
	return info, nil
}

// CreatePSO creates a password settings object under the Password
// Settings Container.
func (s *Session) CreatePSO(cn string, params PSOParams) (*PSOInfo, error) {
	dn := fmt.Sprintf("CN=%s,%s", ldap.EscapeDN(cn), s.psoContainerDN())
	attrs := params.Attributes()
	req := ldap.NewAddRequest(dn, nil)
	req.Attribute("objectClass", []string{"msDS-PasswordSettings"})
	for _, name := range psoManagedAttrs {
		req.Attribute(name, attrs[name])
	}
	if err := s.conn.Add(req); err != nil {
		return nil, fmt.Errorf("creating password settings object %q: %w", cn, err)
	}
	s.logger.Info("created password settings object", "dn", dn)
	return &PSOInfo{DN: dn, CN: cn, Attrs: attrs}, nil
}

// ModifyPSO replaces the given managed attributes on an existing
// password settings object.
func (s *Session) ModifyPSO(dn string, attrs map[string][]string) error {
	req := ldap.NewModifyRequest(dn, nil)
	for _, name := range psoManagedAttrs {
		if vals, ok := attrs[name]; ok {
			req.Replace(name, vals)
		}
	}
	if err := s.conn.Modify(req); err != nil {
		return fmt.Errorf("updating password settings object %s: %w", dn, err)
	}
	s.logger.Info("updated password settings object", "dn", dn, "attributes", len(attrs))
	return nil
}

// LinkPSO points msDS-PSOAppliesTo at the given group. The policy only
// takes effect once this link exists.
func (s *Session) LinkPSO(psoDN, groupDN string) error {
	if err := s.modifyReplace(psoDN, "msDS-PSOAppliesTo", []string{groupDN}); err != nil {
		return fmt.Errorf("applying %s to %s: %w", psoDN, groupDN, err)
	}
	s.logger.Info("applied password settings object", "pso", psoDN, "group", groupDN)
	return nil
}

// DeletePSO removes a password settings object by CN. ErrNotFound when
// there is nothing to remove.
func (s *Session) DeletePSO(cn string) error {
	info, err := s.FindPSO(cn)
	if err != nil {
		return err
	}
	if err := s.conn.Del(ldap.NewDelRequest(info.DN, nil)); err != nil {
		return fmt.Errorf("deleting password settings object %s: %w", info.DN, err)
	}
	s.logger.Info("deleted password settings object", "dn", info.DN)
	return nil
}

// FindGPOByName looks a group policy container up by display name.
// ErrNotFound when it does not exist.
func (s *Session) FindGPOByName(displayName string) (*GPOInfo, error) {
	filter := ldapfilter.And(
		ldapfilter.Eq("objectClass", "groupPolicyContainer"),
		ldapfilter.Eq("displayName", displayName),
	)
	attrs := []string{"cn", "displayName", "gPCFileSysPath", "nTSecurityDescriptor"}
	entry, err := s.searchOne(s.policiesDN(), filter.String(), attrs, sdFlagsControl())
	if err != nil {
		return nil, err
	}
	return &GPOInfo{
		DN:          entry.DN,
		CN:          entry.GetAttributeValue("cn"),
		DisplayName: entry.GetAttributeValue("displayName"),
		FileSysPath: entry.GetAttributeValue("gPCFileSysPath"),
		OwnerSID:    ownerSIDString(entry.GetRawAttributeValue("nTSecurityDescriptor")),
	}, nil
}

// CreateGPO creates a group policy container with its Machine and User
// subcontainers and SYSVOL folder, then links it to the Domain
// Controllers OU. A failure after the container exists rolls the
// container back so a broken policy is never left discoverable.
func (s *Session) CreateGPO(displayName string) (*GPOInfo, error) {
	cn := "{" + strings.ToUpper(uuid.New().String()) + "}"
	dn := fmt.Sprintf("CN=%s,%s", cn, s.policiesDN())
	domain := s.dnsDomainName()
	gpo := &GPOInfo{
		DN:          dn,
		CN:          cn,
		DisplayName: displayName,
		FileSysPath: fmt.Sprintf(`\\%s\SysVol\%s\Policies\%s`, domain, domain, cn),
	}

	req := ldap.NewAddRequest(dn, nil)
	req.Attribute("objectClass", []string{"groupPolicyContainer"})
	req.Attribute("displayName", []string{displayName})
	req.Attribute("gPCFileSysPath", []string{gpo.FileSysPath})
	req.Attribute("gPCFunctionalityVersion", []string{"2"})
	req.Attribute("flags", []string{"0"})
	req.Attribute("versionNumber", []string{"0"})
	if err := s.conn.Add(req); err != nil {
		return nil, fmt.Errorf("creating policy object %q: %w", displayName, err)
	}

	if err := s.populateGPO(gpo); err != nil {
		s.rollbackGPO(gpo)
		return nil, err
	}
	if err := s.linkGPO(dn); err != nil {
		s.rollbackGPO(gpo)
		return nil, err
	}
	s.logger.Info("created and linked policy object", "display_name", displayName, "dn", dn)
	return gpo, nil
}

// populateGPO adds the Machine and User subcontainers and writes the
// initial SYSVOL skeleton.
func (s *Session) populateGPO(gpo *GPOInfo) error {
	for _, sub := range []string{"CN=Machine,", "CN=User,"} {
		req := ldap.NewAddRequest(sub+gpo.DN, nil)
		req.Attribute("objectClass", []string{"container"})
		if err := s.conn.Add(req); err != nil {
			return fmt.Errorf("creating %s%s: %w", sub, gpo.DN, err)
		}
	}
	if err := os.MkdirAll(filepath.Join(gpo.FileSysPath, "Machine"), 0o755); err != nil {
		return fmt.Errorf("creating policy folder %s: %w", gpo.FileSysPath, err)
	}
	return writeGptIni(gpo.FileSysPath, 0)
}

// rollbackGPO tears a partially created policy object down again.
// Best effort: the original error is what the caller reports.
func (s *Session) rollbackGPO(gpo *GPOInfo) {
	if err := s.conn.Del(ldap.NewDelRequest(gpo.DN, []ldap.Control{treeDeleteControl()})); err != nil {
		s.logger.Error("rollback of partial policy object failed", "dn", gpo.DN, "error", err)
	}
	if err := os.RemoveAll(gpo.FileSysPath); err != nil {
		s.logger.Error("rollback of policy folder failed", "path", gpo.FileSysPath, "error", err)
	}
}

// SetGPOSetting merges one machine registry value into the policy
// object's registry.pol. When the value was already present nothing is
// written and changed is false; otherwise the version counters are
// bumped so clients re-apply the policy.
func (s *Session) SetGPOSetting(gpo *GPOInfo, entry PolEntry) (changed bool, err error) {
	polPath := filepath.Join(gpo.FileSysPath, "Machine", "registry.pol")
	raw, err := os.ReadFile(polPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("reading %s: %w", polPath, err)
	}
	entries, err := parsePolFile(raw)
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", polPath, err)
	}
	merged, changed := mergePolEntry(entries, entry)
	if !changed {
		return false, nil
	}
	if err := os.WriteFile(polPath, encodePolFile(merged), 0o644); err != nil {
		return false, fmt.Errorf("writing %s: %w", polPath, err)
	}
	if err := s.bumpGPOVersion(gpo); err != nil {
		return false, err
	}
	s.logger.Info("set policy registry value", "dn", gpo.DN, "key", entry.Key, "value", entry.Value)
	return true, nil
}

// bumpGPOVersion increments versionNumber on the container and mirrors
// it into GPT.INI. Only machine settings are written here, so the plain
// increment lands in the machine half (the low word). The registry
// extension pair is recorded when missing.
func (s *Session) bumpGPOVersion(gpo *GPOInfo) error {
	entry, err := s.readEntry(gpo.DN, "versionNumber", "gPCMachineExtensionNames")
	if err != nil {
		return err
	}
	version, _ := strconv.Atoi(entry.GetAttributeValue("versionNumber"))
	version++
	if err := s.modifyReplace(gpo.DN, "versionNumber", []string{strconv.Itoa(version)}); err != nil {
		return fmt.Errorf("updating version of %s: %w", gpo.DN, err)
	}
	extensions := entry.GetAttributeValue("gPCMachineExtensionNames")
	if !strings.EqualFold(extensions, registryCSEPair) {
		if err := s.modifyReplace(gpo.DN, "gPCMachineExtensionNames", []string{registryCSEPair}); err != nil {
			return fmt.Errorf("recording extension list on %s: %w", gpo.DN, err)
		}
	}
	return writeGptIni(gpo.FileSysPath, version)
}

// DeleteGPOByName unlinks and removes a group policy container and its
// SYSVOL folder. ErrNotFound when there is nothing to remove.
func (s *Session) DeleteGPOByName(displayName string) error {
	gpo, err := s.FindGPOByName(displayName)
	if err != nil {
		return err
	}
	if err := s.unlinkGPO(gpo.DN); err != nil {
		return err
	}
	if err := s.conn.Del(ldap.NewDelRequest(gpo.DN, []ldap.Control{treeDeleteControl()})); err != nil {
		return fmt.Errorf("deleting policy object %s: %w", gpo.DN, err)
	}
	if gpo.FileSysPath != "" {
		if err := os.RemoveAll(gpo.FileSysPath); err != nil {
			s.logger.Warn("could not remove policy folder", "path", gpo.FileSysPath, "error", err)
		}
	}
	s.logger.Info("deleted policy object", "display_name", displayName, "dn", gpo.DN)
	return nil
}

// linkGPO appends the policy to the Domain Controllers OU gPLink. An
// existing link is left as is.
func (s *Session) linkGPO(gpoDN string) error {
	ou := s.dcOUDN()
	entry, err := s.readEntry(ou, "gPLink")
	if err != nil {
		return err
	}
	current := entry.GetAttributeValue("gPLink")
	if gplinkContains(current, gpoDN) {
		return nil
	}
	updated := current + fmt.Sprintf("[LDAP://%s;0]", gpoDN)
	if err := s.modifyReplace(ou, "gPLink", []string{updated}); err != nil {
		return fmt.Errorf("linking %s to %s: %w", gpoDN, ou, err)
	}
	return nil
}

// unlinkGPO drops the policy from the Domain Controllers OU gPLink.
// A link that is already gone is not an error.
func (s *Session) unlinkGPO(gpoDN string) error {
	ou := s.dcOUDN()
	entry, err := s.readEntry(ou, "gPLink")
	if err != nil {
		return err
	}
	updated, found := gplinkRemove(entry.GetAttributeValue("gPLink"), gpoDN)
	if !found {
		return nil
	}
	var values []string
	if updated != "" {
		values = []string{updated}
	}
	if err := s.modifyReplace(ou, "gPLink", values); err != nil {
		return fmt.Errorf("unlinking %s from %s: %w", gpoDN, ou, err)
	}
	return nil
}

// dnsDomainName derives the DNS domain from the base DN: DC=corp,DC=local
// becomes corp.local.
func (s *Session) dnsDomainName() string {
	var labels []string
	for _, part := range strings.Split(s.baseDN, ",") {
		part = strings.TrimSpace(part)
		if len(part) > 3 && strings.EqualFold(part[:3], "DC=") {
			labels = append(labels, part[3:])
		}
	}
	return strings.Join(labels, ".")
}

func writeGptIni(fileSysPath string, version int) error {
	path := filepath.Join(fileSysPath, "GPT.INI")
	content := fmt.Sprintf("[General]\r\nVersion=%d\r\n", version)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ownerSIDString pulls the owner out of a binary security descriptor.
// Empty when the descriptor is missing or unparseable: ownership is
// informational and must not fail a lookup.
func ownerSIDString(descriptor []byte) string {
	if len(descriptor) == 0 {
		return ""
	}
	sd, err := gontsd.Parse(descriptor, nil)
	if err != nil || sd.OwnerSID == nil {
		return ""
	}
	return sd.OwnerSID.Value
}
