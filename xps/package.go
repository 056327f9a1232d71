package xps

import (
	"bytes"
	"fmt"
	"path"
	"slices"
	"time"

	"github.com/adnsv/srw/xml"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
)

const (
	nsXPS           = "http://schemas.microsoft.com/xps/2005/06"
	nsContentTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"
	nsRelationships = "http://schemas.openxmlformats.org/package/2006/relationships"

	relFixedRepresentation = "http://schemas.microsoft.com/xps/2005/06/fixedrepresentation"
	relCoreProperties      = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"

	documentSequencePath = "/FixedDocSeq.fdseq"
	fixedDocumentPath    = "/Documents/1/FixedDocument.fdoc"
	corePropertiesPath   = "/docProps/core.xml"
	pagePathPrefix       = "/Documents/1/Pages/"

	packageRoot = "/"
)

// Part is one entry of the package.
type Part struct {
	Path        string
	Blob        []byte
	ContentType string // empty uses the default for the extension
}

type Relationship struct {
	ID     string
	Type   string
	Target string
}

type relList struct {
	ids  map[[2]string]string // (type, target) to id
	list []Relationship
}

type pageRef struct {
	path          string
	width, height float64
}

// Package collects the parts and relationships of an XPS document and writes
// them out in a fixed order.
type Package struct {
	Properties DocumentProperties
	Strict     bool // duplicate part names fail instead of replacing

	DefaultContentTypes map[string]string // maps path extension to content-type
	PartContentTypes    map[string]string // maps part name to content-type

	parts     []*Part
	partIndex map[string]int
	typefaces []*Part
	rels      map[string]*relList
	sources   []string // relationship sources in order of first use
	pages     []pageRef
	now       func() time.Time
}

func NewPackage() *Package {
	p := &Package{
		DefaultContentTypes: map[string]string{
			"png":    "image/png",
			"jpeg":   "image/jpg",
			"jpg":    "image/jpeg",
			"rels":   "application/vnd.openxmlformats-package.relationships+xml",
			"xml":    "application/xml",
			"fdseq":  "application/vnd.ms-package.xps-fixeddocumentsequence+xml",
			"fdoc":   "application/vnd.ms-package.xps-fixeddocument+xml",
			"fpage":  "application/vnd.ms-package.xps-fixedpage+xml",
			"struct": "application/vnd.ms-package.xps-documentstructure+xml",
			"odttf":  "application/vnd.ms-package.obfuscated-opentype",
		},
		PartContentTypes: map[string]string{
			corePropertiesPath: "application/vnd.openxmlformats-package.core-properties+xml",
		},
		partIndex: map[string]int{},
		rels:      map[string]*relList{},
		now:       time.Now,
	}
	p.AddRelationship(packageRoot, relFixedRepresentation, documentSequencePath)
	p.AddRelationship(packageRoot, relCoreProperties, corePropertiesPath)
	return p
}

// AddPart buffers a part. Adding a path twice keeps the position of the first
// insertion and the data of the last one, unless the package is Strict.
func (p *Package) AddPart(name string, blob []byte, contentType string) error {
	if err := validatePartName(name); err != nil {
		return fmt.Errorf("part %q: %w", name, err)
	}
	if i, ok := p.partIndex[name]; ok {
		if p.Strict {
			return fmt.Errorf("%w: %s", ErrDuplicatePart, name)
		}
		p.parts[i].Blob = blob
		p.parts[i].ContentType = contentType
	} else {
		p.partIndex[name] = len(p.parts)
		p.parts = append(p.parts, &Part{Path: name, Blob: blob, ContentType: contentType})
	}
	if contentType != "" {
		p.PartContentTypes[name] = contentType
	}
	return nil
}

// addTypeface buffers an obfuscated font. Font part names are derived from
// the typeface, so a name that is already taken is an error.
func (p *Package) addTypeface(name string, blob []byte) error {
	if _, ok := p.partIndex[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePart, name)
	}
	for _, pt := range p.typefaces {
		if pt.Path == name {
			return fmt.Errorf("%w: %s", ErrDuplicatePart, name)
		}
	}
	p.typefaces = append(p.typefaces, &Part{Path: name, Blob: blob})
	return nil
}

// Parts returns the buffered parts in insertion order.
func (p *Package) Parts() []*Part {
	return p.parts
}

// AddRelationship links source to target. Ids are rId1, rId2, ... per source;
// a repeated (type, target) pair returns the existing id and false.
func (p *Package) AddRelationship(source, typ, target string) (string, bool) {
	rl, ok := p.rels[source]
	if !ok {
		rl = &relList{ids: map[[2]string]string{}}
		p.rels[source] = rl
		p.sources = append(p.sources, source)
	}
	k := [2]string{typ, target}
	if id, ok := rl.ids[k]; ok {
		return id, false
	}
	id := fmt.Sprintf("rId%d", len(rl.list)+1)
	rl.ids[k] = id
	rl.list = append(rl.list, Relationship{ID: id, Type: typ, Target: target})
	return id, true
}

// Relationships returns the relationships of source in id order.
func (p *Package) Relationships(source string) []Relationship {
	if rl, ok := p.rels[source]; ok {
		return rl.list
	}
	return nil
}

// AddPage appends a page reference to the fixed document.
func (p *Package) AddPage(name string, width, height float64) {
	p.pages = append(p.pages, pageRef{path: name, width: width, height: height})
}

// PageCount returns the number of pages added so far.
func (p *Package) PageCount() int {
	return len(p.pages)
}

// Finalize writes the whole package into s.
func (p *Package) Finalize(s Storage) error {
	var err error

	err = p.writeContentTypes(s)
	if err != nil {
		return err
	}

	err = p.writeRels(s, packageRoot)
	if err != nil {
		return err
	}

	err = p.writeDocumentSequence(s)
	if err != nil {
		return err
	}

	err = p.writeFixedDocument(s)
	if err != nil {
		return err
	}

	err = p.writeCoreProperties(s)
	if err != nil {
		return err
	}

	for _, parts := range [][]*Part{p.typefaces, p.parts} {
		for _, pt := range parts {
			err = s.WriteBlob(pt.Path, pt.Blob)
			if err != nil {
				return err
			}
		}
	}

	for _, src := range p.sources {
		if src == packageRoot {
			continue
		}
		err = p.writeRels(s, src)
		if err != nil {
			return err
		}
	}

	return nil
}

// relsPath returns the name of the relationship part of source.
func relsPath(source string) string {
	if source == packageRoot {
		return "/_rels/.rels"
	}
	dir, name := path.Split(source)
	return dir + "_rels/" + name + ".rels"
}

func (p *Package) writeContentTypes(s Storage) error {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})

	x.XmlStandaloneDecl()
	x.OTag("Types")
	x.Attr("xmlns", nsContentTypes)
	enumerate(p.DefaultContentTypes, func(ext, ctype string) error {
		x.OTag("+Default").Attr("Extension", ext).Attr("ContentType", ctype).CTag()
		return nil
	})
	enumerate(p.PartContentTypes, func(name, ctype string) error {
		x.OTag("+Override").Attr("PartName", name).Attr("ContentType", ctype).CTag()
		return nil
	})
	x.CTag()

	return s.WriteBlob("[Content_Types].xml", bb.Bytes())
}

func (p *Package) writeDocumentSequence(s Storage) error {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})

	x.XmlStandaloneDecl()
	x.OTag("FixedDocumentSequence")
	x.Attr("xmlns", nsXPS)
	x.OTag("+DocumentReference").Attr("Source", fixedDocumentPath).CTag()
	x.CTag()

	return s.WriteBlob(documentSequencePath, bb.Bytes())
}

func (p *Package) writeFixedDocument(s Storage) error {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})

	x.XmlStandaloneDecl()
	x.OTag("FixedDocument")
	x.Attr("xmlns", nsXPS)
	for _, pg := range p.pages {
		x.OTag("+PageContent")
		x.Attr("Source", pg.path)
		x.Attr("Width", Float(pg.width))
		x.Attr("Height", Float(pg.height))
		x.CTag()
	}
	x.CTag()

	return s.WriteBlob(fixedDocumentPath, bb.Bytes())
}

func (p *Package) writeCoreProperties(s Storage) error {
	props := p.Properties
	created := props.Created
	if created.IsZero() {
		created = p.now()
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})

	x.XmlStandaloneDecl()
	x.OTag("cp:coreProperties")
	x.Attr("xmlns:cp", "http://schemas.openxmlformats.org/package/2006/metadata/core-properties")
	x.Attr("xmlns:dc", "http://purl.org/dc/elements/1.1/")
	x.Attr("xmlns:dcterms", "http://purl.org/dc/terms/")
	x.Attr("xmlns:dcmitype", "http://purl.org/dc/dcmitype/")
	x.Attr("xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance")

	if props.Title != "" {
		x.OTag("+dc:title").String(props.Title).CTag()
	}
	if props.Subject != "" {
		x.OTag("+dc:subject").String(props.Subject).CTag()
	}
	if props.Creator != "" {
		x.OTag("+dc:creator").String(props.Creator).CTag()
	}
	if props.Keywords != "" {
		x.OTag("+cp:keywords").String(props.Keywords).CTag()
	}
	if props.Description != "" {
		x.OTag("+dc:description").String(props.Description).CTag()
	}

	x.OTag("+dcterms:created")
	x.Attr("xsi:type", "dcterms:W3CDTF")
	x.Write(created.UTC().Format(time.RFC3339))
	x.CTag()

	x.CTag()

	return s.WriteBlob(corePropertiesPath, bb.Bytes())
}

func (p *Package) writeRels(s Storage, source string) error {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("Relationships")
	x.Attr("xmlns", nsRelationships)
	for _, r := range p.Relationships(source) {
		x.OTag("+Relationship").Attr("Id", r.ID).Attr("Type", r.Type).Attr("Target", r.Target)
		x.CTag()
	}
	x.CTag()

	return s.WriteBlob(relsPath(source), bb.Bytes())
}

func enumerate[M ~map[K]V, K constraints.Ordered, V any](m M, callback func(k K, v V) error) error {
	keys := maps.Keys(m)
	slices.Sort(keys)
	for _, k := range keys {
		err := callback(k, m[k])
		if err != nil {
			return err
		}
	}
	return nil
}
