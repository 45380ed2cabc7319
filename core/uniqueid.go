package core

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"
)

const (
	// defaultChildID is dropped from logical IDs and addresses.
	defaultChildID = "Default"
	// hiddenFromHumanID is dropped from the readable part of logical IDs.
	hiddenFromHumanID = "Resource"

	maxIDLen      = 255
	maxHumanLen   = 240
	uniqueHashLen = 8
)

// MakeUniqueID builds a CloudFormation logical ID from path components.
//
// A single component is used as is (non-alphanumerics stripped) when it is
// short enough. Otherwise the readable components are concatenated and
// suffixed with a hash of the full path, so two paths that read the same
// still get different IDs.
func MakeUniqueID(components []string) (string, error) {
	var filtered []string
	for _, c := range components {
		if c != defaultChildID {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return "", errors.New("unable to calculate a unique id for an empty set of components")
	}

	if len(filtered) == 1 {
		candidate := removeNonAlphanumeric(filtered[0])
		if len(candidate) <= maxIDLen {
			return candidate, nil
		}
	}

	var human strings.Builder
	for _, c := range removeDupes(filtered) {
		if c == hiddenFromHumanID {
			continue
		}
		human.WriteString(removeNonAlphanumeric(c))
	}
	h := human.String()
	if len(h) > maxHumanLen {
		h = h[:maxHumanLen]
	}
	return h + pathHash(filtered), nil
}

func pathHash(components []string) string {
	sum := md5.Sum([]byte(strings.Join(components, PathSeparator)))
	return strings.ToUpper(hex.EncodeToString(sum[:])[:uniqueHashLen])
}

// removeDupes drops a component when the previous one already ends with it,
// so "Cluster/ClusterRole/Role" reads "ClusterClusterRole" rather than
// repeating "Role".
func removeDupes(path []string) []string {
	var out []string
	for _, c := range path {
		if len(out) == 0 || !strings.HasSuffix(out[len(out)-1], c) {
			out = append(out, c)
		}
	}
	return out
}

func removeNonAlphanumeric(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}
