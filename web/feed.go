// This code is in Public Domain. Take all the code you want, I'll just write more.
package web

import (
	"fmt"
	"net/http"
	"time"

	atom "github.com/kjk/atomgenerator"
)

func (s *Server) buildThreadURL(threadID string) string {
	return fmt.Sprintf("%s/thread/%s", s.config.PublicURL, threadID)
}

func (s *Server) buildThreadID(threadID string, pubDate time.Time) string {
	return fmt.Sprintf("tag:%s,%s:/thread/%s", s.config.PublicURL, pubDate.Format("2006-01-02"), threadID)
}

// url: /feed.xml
func (s *Server) handleAtom(w http.ResponseWriter, r *http.Request) {
	threads, err := s.api.Threads(r.Context(), "")
	if err != nil {
		s.serveAPIError(w, r, err)
		return
	}
	if len(threads) > 25 {
		threads = threads[:25]
	}

	pubTime := time.Now()
	if len(threads) > 0 && threads[0].LastPost != nil {
		pubTime = time.UnixMilli(threads[0].LastPost.Date)
	}

	feed := &atom.Feed{
		Title:   "Forerun",
		Link:    s.config.PublicURL,
		PubDate: pubTime,
	}

	for _, t := range threads {
		pubDate := time.Now()
		content := ""
		if t.LastPost != nil {
			pubDate = time.UnixMilli(t.LastPost.Date)
			content = fmt.Sprintf("%d replies, last by %s", t.ReplyCount, t.LastPost.Author)
		}
		e := &atom.Entry{
			Id:      s.buildThreadID(t.ID, pubDate),
			Title:   t.Title,
			PubDate: pubDate,
			Link:    s.buildThreadURL(t.ID),
			Content: content,
		}
		feed.AddEntry(e)
	}

	xml, err := feed.GenXml()
	if err != nil {
		xml = []byte("Failed to generate XML feed")
	}
	w.Write(xml)
}
