package main

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

const contentTypesPart = "[Content_Types].xml"

// partInfo describes one entry of an XPS package.
type partInfo struct {
	Name        string
	Size        uint64
	ContentType string
}

type contentTypes struct {
	Defaults []struct {
		Extension   string `xml:"Extension,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Default"`
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

// lookup returns the content type of the zip entry name.
func (ct *contentTypes) lookup(name string) string {
	partName := "/" + name
	for _, o := range ct.Overrides {
		if strings.EqualFold(o.PartName, partName) {
			return o.ContentType
		}
	}
	ext := strings.TrimPrefix(path.Ext(name), ".")
	for _, d := range ct.Defaults {
		if strings.EqualFold(d.Extension, ext) {
			return d.ContentType
		}
	}
	return ""
}

// listParts reads the directory of an XPS package together with the content
// type declared for every part.
func listParts(r io.ReaderAt, size int64) ([]partInfo, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, err
	}

	var ct contentTypes
	found := false
	for _, f := range zr.File {
		if f.Name != contentTypesPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		err = xml.NewDecoder(rc).Decode(&ct)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", contentTypesPart, err)
		}
		found = true
	}
	if !found {
		return nil, fmt.Errorf("not an XPS package: %s is missing", contentTypesPart)
	}

	parts := make([]partInfo, 0, len(zr.File))
	for _, f := range zr.File {
		info := partInfo{Name: f.Name, Size: f.UncompressedSize64}
		if f.Name != contentTypesPart {
			info.ContentType = ct.lookup(f.Name)
		}
		parts = append(parts, info)
	}
	return parts, nil
}
