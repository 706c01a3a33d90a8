package importers

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

const bookmarksFixture = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<!-- This is an automatically generated file. -->
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
    <DT><H3 ADD_DATE="1700000000" PERSONAL_TOOLBAR_FOLDER="true">Bookmarks bar</H3>
    <DL><p>
        <DT><H3 ADD_DATE="1700000000">Development</H3>
        <DL><p>
            <DT><A HREF="https://a.com" ADD_DATE="1700000000" TAGS="go,web">A</A>
            <DT><A>Reading List</A>
        </DL><p>
        <DT><A HREF="https://b.com">B</A>
    </DL><p>
    <DT><A HREF="https://c.com">C</A>
</DL><p>
`

const pocketHTMLFixture = `<!DOCTYPE html>
<html>
<head><title>Pocket Export</title></head>
<body>
<h1>Unread</h1>
<ul>
<li><a href="https://go.dev/blog" time_added="1700000000" tags="golang,blog">The Go Blog</a></li>
<li><a href="https://example.com/article" time_added="1700000100">Fish &amp; Chips</a></li>
</ul>
<h1>Read Archive</h1>
<ul>
<li><a href="https://example.org/read" time_added="1690000000" tags="">Read thing</a></li>
<li><a href="http://">Broken</a></li>
</ul>
</body>
</html>
`

const pocketCSVFixture = "title,url,time_added,tags,status\n" +
	"Go Blog,https://go.dev/blog,1700000000,tech|news,unread\n" +
	"Bad row,not a url,1700000000,,archive\n" +
	",example.com,,,\n"

const twitterFixture = `window.YTD.bookmark.part0 = [{"bookmark":{"id":"1","tweetId":"2","fullText":"hi"}}];`

const enexHeader = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE en-export SYSTEM "http://xml.evernote.com/pub/evernote-export3.dtd">
<en-export export-date="20240115T143022Z" application="Evernote" version="10.0">
`

// enexFixture returns two notes; the second carries an attachment of
// attachmentSize bytes.
func enexFixture(attachmentSize int) string {
	data := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x89}, attachmentSize))
	return enexHeader + `<note>
<title>Shopping</title>
<content><![CDATA[<?xml version="1.0" encoding="UTF-8"?><!DOCTYPE en-note SYSTEM "http://xml.evernote.com/pub/enml2.dtd"><en-note><div><en-todo checked="true"/>Milk</div><div><en-todo/>Bread</div></en-note>]]></content>
<created>20240115T143022Z</created>
<tag>Home</tag>
<tag>errands</tag>
<note-attributes><source-url>https://example.com/list</source-url></note-attributes>
</note>
<note>
<title>Scanned receipt</title>
<content><![CDATA[<en-note><p>Receipt attached</p><en-media type="image/png" hash="abc"/></en-note>]]></content>
<created>20240116T090000Z</created>
<resource><data encoding="base64">` + data + `</data><mime>image/png</mime><resource-attributes><file-name>receipt.png</file-name></resource-attributes></resource>
</note>
</en-export>
`
}

type zipEntry struct {
	name    string
	content string
}

const notionExportDir = "Export-0b0f8d57-7ab6-4b8f-9c1b-2cbd0a4a0e36"

func buildZip(t *testing.T, entries []zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(e.content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func notionFixture(t *testing.T) []byte {
	t.Helper()
	projects := fmt.Sprintf("%s/Projects 1234567890abcdef1234567890abcdef", notionExportDir)
	return buildZip(t, []zipEntry{
		{name: projects + ".md", content: "# Projects\n\nPlanning for #roadmap and #q3-goals\n"},
		{name: projects + "/Meeting Notes abcdef1234567890abcdef1234567890.html", content: `<html><head><title>Meeting Notes</title></head><body>
<article><header><h1 class="page-title">Meeting Notes</h1></header>
<div class="page-body"><p>Discussed the launch</p><ul><li>Ship it</li></ul></div></article></body></html>`},
		{name: projects + "/diagram.png", content: "\x89PNG"},
		{name: "__MACOSX/._Projects.md", content: "junk"},
		{name: notionExportDir + "/.DS_Store", content: "junk"},
	})
}
