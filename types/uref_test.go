package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessRightsPredicates(t *testing.T) {
	assert.True(t, AccessReadWrite.CanRead())
	assert.True(t, AccessReadWrite.CanWrite())
	assert.False(t, AccessReadWrite.CanAdd())
	assert.False(t, AccessNone.CanRead())

	assert.True(t, AccessRead.IsSubsetOf(AccessReadAddWrite))
	assert.True(t, AccessNone.IsSubsetOf(AccessNone))
	assert.False(t, AccessReadWrite.IsSubsetOf(AccessRead))
}

func TestWithAccessRightsOnlyNarrows(t *testing.T) {
	u := IssueURef([URefAddrLength]byte{1}, AccessRead)

	// Asking for more than is held yields the intersection, never more.
	widened := u.WithAccessRights(AccessReadAddWrite)
	assert.Equal(t, AccessRead, widened.AccessRights())

	narrowed := IssueURef([URefAddrLength]byte{1}, AccessReadAddWrite).WithAccessRights(AccessReadAdd)
	assert.Equal(t, AccessReadAdd, narrowed.AccessRights())

	disjoint := u.WithAccessRights(AccessWrite)
	assert.Equal(t, AccessNone, disjoint.AccessRights())

	// The address never changes.
	assert.Equal(t, u.Addr(), widened.Addr())
}

func TestURefRoundTrip(t *testing.T) {
	u := IssueURef([URefAddrLength]byte{0xFE, 0xDC}, AccessReadAddWrite)
	decoded, err := URefFromBytes(u.ToBytes())
	require.NoError(t, err)
	assert.Equal(t, u, decoded)
	assert.Len(t, u.ToBytes(), URefSerializedLength)
}

func TestURefFromBytesRejectsInvalidRights(t *testing.T) {
	b := IssueURef([URefAddrLength]byte{1}, AccessRead).ToBytes()
	b[URefAddrLength] = 0xF0
	_, err := URefFromBytes(b)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestParseURefRoundTrip(t *testing.T) {
	u := IssueURef([URefAddrLength]byte{0x42}, AccessReadWrite)
	parsed, err := ParseURef(u.String())
	require.NoError(t, err)
	assert.Equal(t, u, parsed)

	_, err = ParseURef("hash-0011")
	assert.ErrorIs(t, err, ErrFormat)
	_, err = ParseURef("uref-0011-007")
	assert.ErrorIs(t, err, ErrFormat)
}

func TestAccessRightsString(t *testing.T) {
	assert.Equal(t, "NONE", AccessNone.String())
	assert.Equal(t, "READ+WRITE+ADD", AccessReadAddWrite.String())
}
