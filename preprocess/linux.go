package preprocess

import (
	"bufio"
	"io"
	"strings"

	"github.com/5l1v3r1/plaso/errors"
	"github.com/5l1v3r1/plaso/event"
	"github.com/5l1v3r1/plaso/knowledge"
	"github.com/5l1v3r1/plaso/vfs"
)

// readFirstMatch opens the first entry matching the location and returns
// its content.
func readFirstMatch(searcher vfs.Searcher, location string) (string, error) {
	specs, err := searcher.Find([]vfs.FindSpec{{Location: location}})
	if err != nil {
		return "", err
	}
	if len(specs) == 0 {
		return "", errors.WrapTransient(errors.ErrPathNotFound, "preprocess", "readFirstMatch", location)
	}
	entry, err := searcher.OpenFileEntry(specs[0])
	if err != nil {
		return "", err
	}
	rc, err := entry.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", errors.WrapTransient(err, "preprocess", "readFirstMatch", location)
	}
	return string(data), nil
}

// LinuxHostname reads the hostname from /etc/hostname.
type LinuxHostname struct{}

func NewLinuxHostname() *LinuxHostname { return &LinuxHostname{} }

func (*LinuxHostname) Name() string          { return "linux_hostname" }
func (*LinuxHostname) SupportedOS() []string { return []string{OSLinux} }
func (*LinuxHostname) Weight() int           { return WeightPath }
func (*LinuxHostname) Attribute() string     { return knowledge.AttrHostname }

func (p *LinuxHostname) Value(searcher vfs.Searcher, _ *knowledge.Base) (event.Value, error) {
	content, err := readFirstMatch(searcher, "/etc/hostname")
	if err != nil {
		return event.Value{}, err
	}
	hostname := strings.TrimSpace(content)
	if hostname == "" {
		return event.Value{}, errors.WrapTransient(errors.ErrPreprocessFail, "LinuxHostname", "Value", "empty hostname file")
	}
	return event.String(hostname), nil
}

// LinuxTimezone reads the timezone name from /etc/timezone.
type LinuxTimezone struct{}

func NewLinuxTimezone() *LinuxTimezone { return &LinuxTimezone{} }

func (*LinuxTimezone) Name() string          { return "linux_timezone" }
func (*LinuxTimezone) SupportedOS() []string { return []string{OSLinux} }
func (*LinuxTimezone) Weight() int           { return WeightPath }
func (*LinuxTimezone) Attribute() string     { return knowledge.AttrTimezone }

func (p *LinuxTimezone) Value(searcher vfs.Searcher, _ *knowledge.Base) (event.Value, error) {
	content, err := readFirstMatch(searcher, "/etc/timezone")
	if err != nil {
		return event.Value{}, err
	}
	zone := strings.TrimSpace(content)
	if zone == "" {
		return event.Value{}, errors.WrapTransient(errors.ErrPreprocessFail, "LinuxTimezone", "Value", "empty timezone file")
	}
	return event.String(zone), nil
}

// LinuxUsers parses /etc/passwd into the account table. It records the
// table on the knowledge base directly so identifier lookups work, and
// reports a uid-to-name map as the attribute value.
type LinuxUsers struct{}

func NewLinuxUsers() *LinuxUsers { return &LinuxUsers{} }

func (*LinuxUsers) Name() string          { return "linux_users" }
func (*LinuxUsers) SupportedOS() []string { return []string{OSLinux} }
func (*LinuxUsers) Weight() int           { return WeightValue }
func (*LinuxUsers) Attribute() string     { return knowledge.AttrUsers }

func (p *LinuxUsers) Value(searcher vfs.Searcher, kb *knowledge.Base) (event.Value, error) {
	content, err := readFirstMatch(searcher, "/etc/passwd")
	if err != nil {
		return event.Value{}, err
	}

	var users []knowledge.User
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// name:passwd:uid:gid:gecos:home:shell
		fields := strings.Split(line, ":")
		if len(fields) < 6 {
			continue
		}
		users = append(users, knowledge.User{
			Identifier: fields[2],
			Name:       fields[0],
			Path:       fields[5],
		})
	}
	if len(users) == 0 {
		return event.Value{}, errors.WrapTransient(errors.ErrPreprocessFail, "LinuxUsers", "Value", "no accounts in passwd")
	}

	kb.SetUsers(users)

	table := make(event.Map, len(users))
	for _, user := range users {
		table[user.Identifier] = event.String(user.Name)
	}
	return event.Nested(table), nil
}
