package publishapi

import "io"

// Upload is the archive handed to Validate: a name, a known size and a way to
// open the bytes. Keeping it open-on-demand lets the transfer stream straight
// off disk or out of a multipart request without buffering the whole archive.
type Upload struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// progressReader reports transfer progress as whole percentages while the
// multipart body is consumed. Percentages never decrease and 100 is only
// reported once all bytes have been read.
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	lastPct  int
	callback func(int)
}

func newProgressReader(r io.Reader, total int64, callback func(int)) *progressReader {
	pr := &progressReader{r: r, total: total, lastPct: -1, callback: callback}
	pr.report(0)
	return pr
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	pr.read += int64(n)
	if pr.total > 0 {
		pct := int(pr.read * 100 / pr.total)
		if pct > 100 {
			pct = 100
		}
		pr.report(pct)
	}
	return n, err
}

func (pr *progressReader) report(pct int) {
	if pr.callback == nil || pct <= pr.lastPct {
		return
	}
	pr.lastPct = pct
	pr.callback(pct)
}
