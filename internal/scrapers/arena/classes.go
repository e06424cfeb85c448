package arena

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"arena-sheets/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ClassListPageSize is requested so every class fits on one page.
const ClassListPageSize = "200"

const classRowsSelector = "#ctl08_ctl02_dgGroups tr.listItem, #ctl08_ctl02_dgGroups tr.listAltItem"

var groupIdRegex = regexp.MustCompile(`(?i)group=(\d+)`)

type Class struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// parseClasses reads the class grid, a room number in the last column is
// appended to the name as "Name (room)".
func parseClasses(doc *goquery.Document) []Class {
	var out []Class
	doc.Find(classRowsSelector).Each(func(_ int, row *goquery.Selection) {
		link := row.Find("td").First().Find("a").First()
		groups := groupIdRegex.FindStringSubmatch(link.AttrOr("href", ""))
		if len(groups) < 2 {
			return
		}

		name := htmlutil.CleanText(link.Text())
		cells := row.Find("td")
		if cells.Length() > 1 {
			room := htmlutil.CleanText(cells.Last().Text())
			if len(room) > 1 {
				name = fmt.Sprintf("%s (%s)", name, room)
			}
		}
		out = append(out, Class{ID: groups[1], Name: name})
	})
	return out
}

// Classes lists every class, skip filters out classes by id.
func (c *Client) Classes(ctx context.Context, skip func(id string) bool) ([]Class, error) {
	ctx, span := tracer.Start(ctx, "client:Classes")
	defer span.End()

	doc, pageUrl, err := c.getDocument(ctx, pagePath(pageClassList))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch class list")
		return nil, err
	}

	// ask for a page size large enough to hold every class
	refresh := doc.Find(`input[id$="btnRefreshdgGroups"]`).First()
	pageSize := doc.Find("input.listItem").First()
	if refresh.Length() > 0 && pageSize.Length() > 0 {
		pb, err := newPostback(doc, pageUrl)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to read class list form")
			return nil, err
		}
		pb.fields[pageSize.AttrOr("name", "")] = ClassListPageSize
		pb.fields[refresh.AttrOr("name", "")] = refresh.AttrOr("value", "")

		res, err := c.submit(ctx, pb)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to page class list")
			return nil, err
		}
		doc, err = goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to parse class list")
			return nil, err
		}
	}

	var out []Class
	for _, class := range parseClasses(doc) {
		if skip != nil && skip(class.ID) {
			continue
		}
		out = append(out, class)
	}
	span.SetAttributes(attribute.Int("classes", len(out)))
	if len(out) == 0 {
		return nil, fmt.Errorf("class list is empty, the session may have expired")
	}
	return out, nil
}

// exportFieldName derives the postback name of an export image button
// from its id when the name attribute is missing,
// "ctl08_ctl11_dgMembers_ibExport" -> "ctl08$ctl11$dgMembers_ibExport".
func exportFieldName(id string) string {
	name := strings.ReplaceAll(id, "_", "$")
	return strings.Replace(name, "$ibExport", "_ibExport", 1)
}
