package arena

import (
	"bytes"
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const attendanceTab = "AggregateMembers"

// export "clicks" the first export button of a class page and returns the
// exported document.
func (c *Client) export(ctx context.Context, path string) ([]byte, error) {
	doc, pageUrl, err := c.getDocument(ctx, path)
	if err != nil {
		return nil, err
	}

	button := doc.Find(`input[id$="_ibExport"]`).First()
	if button.Length() == 0 {
		return nil, fmt.Errorf("no export button on %s", path)
	}
	name := button.AttrOr("name", "")
	if name == "" {
		name = exportFieldName(button.AttrOr("id", ""))
	}

	pb, err := newPostback(doc, pageUrl)
	if err != nil {
		return nil, err
	}
	// image buttons submit the coordinates of the click
	pb.fields[name+".x"] = "1"
	pb.fields[name+".y"] = "1"

	res, err := c.submit(ctx, pb)
	if err != nil {
		return nil, err
	}
	body := res.Body()
	if !bytes.Contains(bytes.ToLower(body), []byte("<table")) {
		return nil, fmt.Errorf("export of %s contains no table", path)
	}
	return body, nil
}

// RosterExport downloads the member export of a class.
func (c *Client) RosterExport(ctx context.Context, classID string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "client:RosterExport")
	defer span.End()
	span.SetAttributes(attribute.String("class_id", classID))

	body, err := c.export(ctx, pagePath(pageClassDetail, "group", classID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to export roster")
		return nil, err
	}
	return body, nil
}

// AttendanceExport downloads the aggregate attendance export of a class.
func (c *Client) AttendanceExport(ctx context.Context, classID string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "client:AttendanceExport")
	defer span.End()
	span.SetAttributes(attribute.String("class_id", classID))

	body, err := c.export(ctx, pagePath(pageClassDetail, "group", classID, "tab", attendanceTab))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to export attendance")
		return nil, err
	}
	return body, nil
}
