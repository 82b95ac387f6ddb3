package lwm2m

import (
	"fmt"
	"strconv"
	"strings"
)

// pathLevels is the number of segments in a resource path.
const pathLevels = 3

// Path addresses a single resource as object/instance/resource.
type Path struct {
	Object   uint16
	Instance uint16
	Resource uint16
}

// ParsePath parses "o/i/r". Surrounding whitespace and slashes are ignored,
// so "/3323/1/5601/" is accepted.
//
// Example:
//
//	p, err := ParsePath("3323/1/5601")
//	if err != nil {
//	    return err
//	}
func ParsePath(s string) (Path, error) {
	trimmed := strings.Trim(strings.TrimSpace(s), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != pathLevels {
		return Path{}, fmt.Errorf("%w: expected object/instance/resource, got %q", ErrInvalidAddress, s)
	}

	var ids [pathLevels]uint16
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 16)
		if err != nil {
			return Path{}, fmt.Errorf("%w: segment %d of %q is not an id in 0-65535", ErrInvalidAddress, i+1, s)
		}
		ids[i] = uint16(n)
	}
	return Path{Object: ids[0], Instance: ids[1], Resource: ids[2]}, nil
}

// String returns the path in "o/i/r" form.
func (p Path) String() string {
	return fmt.Sprintf("%d/%d/%d", p.Object, p.Instance, p.Resource)
}
