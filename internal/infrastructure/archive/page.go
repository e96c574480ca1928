package archive

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path"
	"path/filepath"

	"ResetTracker/internal/domain"
)

var pageTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html lang="ko">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <meta property="og:type" content="website">
  <meta property="og:title" content="{{.Brand}} {{.Location}} 지점 {{.Category}} 안내">
  <meta property="og:image" content="{{.ImageURL}}">
  <title>{{.Brand}} {{.Location}} 지점 {{.Category}}</title>
</head>
<body>
  <h1>{{.Location}} 지점 {{.Category}} 안내</h1>
  <p>{{.Brand}} {{.Location}} 지점의 최신 {{.Category}} 정보를 확인하세요.</p>
  <p>업데이트 날짜: <time datetime="{{.ISODate}}">{{.UpdatedOn}}</time></p>
  <img src="{{.ImageURL}}" alt="{{.Location}} {{.Category}}">
</body>
</html>
`))

// PageData is the template input for a status page.
type PageData struct {
	Brand     string
	Location  string
	Category  string
	ImageURL  string
	ISODate   string
	UpdatedOn string
}

// Render regenerates the key's index.html in full from record.
func (s *Store) Render(ctx context.Context, record domain.StatusRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, _, err := s.keyDir(record.Key())
	if err != nil {
		return err
	}

	data, err := s.pageData(record)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	if err := writeAtomic(dir, pageName, buf.Bytes()); err != nil {
		return fmt.Errorf("write page %s: %w", record.Key(), err)
	}
	return nil
}

func (s *Store) pageData(record domain.StatusRecord) (PageData, error) {
	day, err := record.LatestDate.Time(s.loc)
	if err != nil {
		return PageData{}, fmt.Errorf("page date: %w", err)
	}

	imageFile := filepath.Base(filepath.FromSlash(record.ImagePath))
	imageURL := imageFile
	if s.publicBaseURL != "" {
		imageURL = s.publicBaseURL + "/" + path.Join(record.Location, record.Category.Label(), imageFile)
	}

	return PageData{
		Brand:     s.brand,
		Location:  record.Location,
		Category:  record.Category.Label(),
		ImageURL:  imageURL,
		ISODate:   day.Format("2006-01-02"),
		UpdatedOn: day.Format("2006년 1월 2일"),
	}, nil
}
