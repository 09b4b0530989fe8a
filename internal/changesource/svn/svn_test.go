package svn

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatusExtractsCommitRevision(t *testing.T) {
	const doc = `<?xml version="1.0" encoding="UTF-8"?>
<status>
  <target path="trunk/lib">
    <entry path="trunk/lib/a.c">
      <wc-status item="normal" revision="42" props="none">
        <commit revision="40">
          <author>alice</author>
        </commit>
      </wc-status>
    </entry>
  </target>
</status>`

	var parsed xmlStatus
	require.NoError(t, xml.Unmarshal([]byte(doc), &parsed))
	require.Len(t, parsed.Targets, 1)
	require.Len(t, parsed.Targets[0].Entries, 1)

	entry := parsed.Targets[0].Entries[0]
	assert.Equal(t, "40", entry.WCStatus.Commit.Revision)
	assert.False(t, parsed.hasUnversionedEntry())
}

func TestParseStatusDetectsUnversioned(t *testing.T) {
	const doc = `<?xml version="1.0" encoding="UTF-8"?>
<status>
  <target path=".">
    <entry path="stray.txt">
      <wc-status item="unversioned" props="none"></wc-status>
    </entry>
  </target>
</status>`

	var parsed xmlStatus
	require.NoError(t, xml.Unmarshal([]byte(doc), &parsed))
	assert.True(t, parsed.hasUnversionedEntry())
}

func TestParseStatusDetectsLock(t *testing.T) {
	const doc = `<?xml version="1.0" encoding="UTF-8"?>
<status>
  <target path="trunk">
    <entry path="trunk/busy.c">
      <wc-status item="normal" props="none" wc-locked="true">
        <commit revision="7"></commit>
      </wc-status>
    </entry>
  </target>
</status>`

	var parsed xmlStatus
	require.NoError(t, xml.Unmarshal([]byte(doc), &parsed))
	require.Len(t, parsed.Targets[0].Entries, 1)
	assert.Equal(t, "true", parsed.Targets[0].Entries[0].WCStatus.Locked)
}

func TestChangeLogRejectsUnparseableRevisions(t *testing.T) {
	s, err := New(nil, "", nil)
	require.NoError(t, err)

	_, err = s.ChangeLog("trunk", "abc", "15")
	assert.Error(t, err, "before revision must parse as an integer")

	_, err = s.ChangeLog("trunk", "10", "xyz")
	assert.Error(t, err, "after revision must parse as an integer")
}

func TestParseStatusKeepsUnknownRevisionMarker(t *testing.T) {
	const doc = `<?xml version="1.0" encoding="UTF-8"?>
<status>
  <target path="trunk">
    <entry path="trunk/new.c">
      <wc-status item="added" props="none">
        <commit revision="-1"></commit>
      </wc-status>
    </entry>
  </target>
</status>`

	var parsed xmlStatus
	require.NoError(t, xml.Unmarshal([]byte(doc), &parsed))
	assert.Equal(t, "-1", parsed.Targets[0].Entries[0].WCStatus.Commit.Revision)
}
