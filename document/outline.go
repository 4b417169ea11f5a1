package document

import (
	"log"

	"github.com/benedoc-inc/pdfcore/types"
)

// Bookmark describes one node of a bookmark/outline tree to install via
// SetOutline: either a page-index destination or an explicit URI action.
type Bookmark struct {
	Title     string
	PageIndex int // index into GetPages(); ignored when URI is set
	URI       string
	Children  []Bookmark
}

// SetOutline replaces the document's /Outlines tree with bookmarks,
// registering one indirect object per bookmark (URI actions are stored as
// direct dictionaries inside their bookmark), and wires the new tree into
// the catalog's /Outlines entry. Passing no bookmarks removes /Outlines
// from the catalog entirely.
func (d *Document) SetOutline(bookmarks []Bookmark) error {
	rootVal, ok := d.Trailer().Get("Root")
	if !ok {
		return types.NewPDFError(types.ErrCodeMissingCatalog, "trailer has no /Root entry")
	}
	rootRef, ok := rootVal.Ref()
	if !ok {
		return types.NewPDFError(types.ErrCodeInvalidObject, "/Root is not an indirect reference")
	}
	catalogVal, err := d.registry.Mutate(rootRef)
	if err != nil {
		return err
	}
	catalog, ok := catalogVal.Dict()
	if !ok {
		return types.NewPDFError(types.ErrCodeMissingCatalog, "/Root does not resolve to a dictionary")
	}

	if len(bookmarks) == 0 {
		catalog.Delete("Outlines")
		d.registry.Replace(rootRef, types.DictValue(catalog))
		return nil
	}

	pages := d.GetPages()
	first, last, count := d.createOutlineItems(bookmarks, pages, types.Ref{})

	outlines := types.NewDict()
	outlines.Set("Type", types.Name("Outlines"))
	outlines.Set("First", types.RefValue(first))
	outlines.Set("Last", types.RefValue(last))
	outlines.Set("Count", types.Int(int64(count)))
	outlinesRef := d.registry.Register(types.DictValue(outlines))

	catalog.Set("Outlines", types.RefValue(outlinesRef))
	d.registry.Replace(rootRef, types.DictValue(catalog))

	if d.verbose {
		log.Printf("document: set outline tree (%d top-level bookmarks, %d total)", len(bookmarks), count)
	}
	return nil
}

// createOutlineItems registers one indirect object per bookmark, linking
// /Parent, /Prev, /Next, and (for bookmarks with children) /First, /Last,
// /Count. Returns the first and last sibling refs at this level and the
// total visible item count including descendants.
func (d *Document) createOutlineItems(bookmarks []Bookmark, pages []types.Ref, parent types.Ref) (first, last types.Ref, count int) {
	var prev types.Ref
	for i, bm := range bookmarks {
		dict := types.NewDict()
		dict.Set("Title", types.LiteralString([]byte(bm.Title)))
		if parent.Num != 0 {
			dict.Set("Parent", types.RefValue(parent))
		}

		switch {
		case bm.URI != "":
			action := types.NewDict()
			action.Set("Type", types.Name("Action"))
			action.Set("S", types.Name("URI"))
			action.Set("URI", types.LiteralString([]byte(bm.URI)))
			dict.Set("A", types.DictValue(action))
		case bm.PageIndex >= 0 && bm.PageIndex < len(pages):
			dict.Set("Dest", types.Array([]types.Value{
				types.RefValue(pages[bm.PageIndex]),
				types.Name("XYZ"),
				types.Null(),
				types.Null(),
				types.Null(),
			}))
		}

		itemRef := d.registry.Register(types.DictValue(dict))

		if len(bm.Children) > 0 {
			childFirst, childLast, childCount := d.createOutlineItems(bm.Children, pages, itemRef)
			dict.Set("First", types.RefValue(childFirst))
			dict.Set("Last", types.RefValue(childLast))
			dict.Set("Count", types.Int(int64(childCount)))
			d.registry.Replace(itemRef, types.DictValue(dict))
			count += childCount
		}
		count++

		if i == 0 {
			first = itemRef
		} else {
			prevVal, _ := d.registry.Mutate(prev)
			prevDict, _ := prevVal.Dict()
			prevDict.Set("Next", types.RefValue(itemRef))
			d.registry.Replace(prev, types.DictValue(prevDict))
			dict.Set("Prev", types.RefValue(prev))
			d.registry.Replace(itemRef, types.DictValue(dict))
		}
		prev = itemRef
		last = itemRef
	}
	return first, last, count
}
