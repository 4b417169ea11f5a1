package document

import (
	"log"

	"github.com/benedoc-inc/pdfcore/types"
)

// walkPages performs the once-at-load recursive descent from
// Catalog./Pages, collecting page object refs in document order. Cycles
// are broken by a visited set; untyped kids are skipped silently, and
// unresolvable or non-dictionary kids are skipped with a warning.
func (d *Document) walkPages() error {
	catalog, err := d.catalog()
	if err != nil {
		return err
	}
	pagesVal, ok := catalog.Get("Pages")
	if !ok {
		return types.NewPDFError(types.ErrCodeMissingCatalog, "catalog has no /Pages entry")
	}
	rootRef, ok := pagesVal.Ref()
	if !ok {
		return types.NewPDFError(types.ErrCodeInvalidObject, "/Pages is not an indirect reference")
	}
	d.pagesRootRef = rootRef

	visited := make(map[types.Ref]bool)
	var pages []types.Ref
	if err := d.walkNode(rootRef, visited, &pages); err != nil {
		return err
	}
	d.pages = pages
	return nil
}

func (d *Document) walkNode(ref types.Ref, visited map[types.Ref]bool, out *[]types.Ref) error {
	if visited[ref] {
		return nil
	}
	visited[ref] = true

	v, err := d.registry.Resolve(ref)
	if err != nil {
		d.Warnings.AddWarningf(types.WarningLevelWarning, "unresolvable page tree node %s: %v", ref, err)
		return nil
	}
	dict, ok := v.Dict()
	if !ok {
		d.Warnings.AddWarningf(types.WarningLevelWarning, "page tree node %s is not a dictionary, skipping", ref)
		return nil
	}

	typeVal, hasType := dict.Get("Type")
	typeName, _ := typeVal.Name()

	switch {
	case hasType && typeName == "Page":
		*out = append(*out, ref)
		return nil
	case hasType && typeName == "Pages":
		kidsVal, ok := dict.Get("Kids")
		if !ok {
			return nil
		}
		kids, ok := kidsVal.Array()
		if !ok {
			d.Warnings.AddWarningf(types.WarningLevelWarning, "/Kids of %s is not an array, skipping", ref)
			return nil
		}
		for _, kidVal := range kids {
			kidRef, ok := kidVal.Ref()
			if !ok {
				d.Warnings.AddWarningf(types.WarningLevelWarning, "non-reference kid under %s, skipping", ref)
				continue
			}
			if err := d.walkNode(kidRef, visited, out); err != nil {
				return err
			}
		}
		return nil
	default:
		// Untyped/unknown node: lenient parsing skips it silently.
		return nil
	}
}

// flattenPages replaces the page tree rooted at d.pagesRootRef with a
// single flat /Kids array, updates /Count, and rewrites every page's
// /Parent to point at the root. Subsequent insert/remove/move operations
// then only ever touch this flat array. Idempotent.
func (d *Document) flattenPages() error {
	if d.pagesFlattened {
		return nil
	}
	rootVal, err := d.registry.Mutate(d.pagesRootRef)
	if err != nil {
		return err
	}
	rootDict, ok := rootVal.Dict()
	if !ok {
		return types.NewPDFError(types.ErrCodeInvalidObject, "pages root is not a dictionary")
	}

	kids := make([]types.Value, len(d.pages))
	for i, ref := range d.pages {
		kids[i] = types.RefValue(ref)

		pageVal, err := d.registry.Mutate(ref)
		if err != nil {
			return err
		}
		pageDict, ok := pageVal.Dict()
		if !ok {
			continue
		}
		pageDict.Set("Parent", types.RefValue(d.pagesRootRef))
		d.registry.Replace(ref, types.DictValue(pageDict))
	}

	rootDict.Set("Kids", types.Array(kids))
	rootDict.Set("Count", types.Int(int64(len(kids))))
	d.registry.Replace(d.pagesRootRef, types.DictValue(rootDict))

	d.pagesFlattened = true
	d.Warnings.AddWarning(types.WarningLevelInfo, "page tree flattened to a single /Kids array")
	if d.verbose {
		log.Printf("document: flattened page tree (%d pages)", len(kids))
	}
	return nil
}

// InsertPage inserts ref (a page dictionary's indirect reference) at index.
// If dict is non-nil, it is registered as a new indirect object first and
// ref is ignored. Negative or out-of-range indices clamp to append.
func (d *Document) InsertPage(index int, ref types.Ref, dict *types.Dict) (types.Ref, error) {
	if err := d.flattenPages(); err != nil {
		return types.Ref{}, err
	}

	if dict != nil {
		dict.Set("Parent", types.RefValue(d.pagesRootRef))
		ref = d.registry.Register(types.DictValue(dict))
	}

	if index < 0 || index > len(d.pages) {
		index = len(d.pages)
	}

	d.pages = append(d.pages, types.Ref{})
	copy(d.pages[index+1:], d.pages[index:])
	d.pages[index] = ref

	if err := d.syncKids(); err != nil {
		return types.Ref{}, err
	}
	if d.verbose {
		log.Printf("document: inserted page %s at index %d", ref, index)
	}
	return ref, nil
}

// RemovePage removes the page at index and returns its reference.
// Out-of-range indices are a range error.
func (d *Document) RemovePage(index int) (types.Ref, error) {
	if err := d.flattenPages(); err != nil {
		return types.Ref{}, err
	}
	if index < 0 || index >= len(d.pages) {
		return types.Ref{}, types.NewPDFErrorf(types.ErrCodeRangeError, "remove index %d out of range [0, %d)", index, len(d.pages))
	}

	ref := d.pages[index]
	d.pages = append(d.pages[:index], d.pages[index+1:]...)

	if err := d.syncKids(); err != nil {
		return types.Ref{}, err
	}
	if d.verbose {
		log.Printf("document: removed page %s at index %d", ref, index)
	}
	return ref, nil
}

// MovePage moves the page at index from to index to. Out-of-range indices
// are a range error.
func (d *Document) MovePage(from, to int) error {
	if err := d.flattenPages(); err != nil {
		return err
	}
	n := len(d.pages)
	if from < 0 || from >= n || to < 0 || to >= n {
		return types.NewPDFErrorf(types.ErrCodeRangeError, "move from=%d to=%d out of range [0, %d)", from, to, n)
	}

	ref := d.pages[from]
	d.pages = append(d.pages[:from], d.pages[from+1:]...)
	d.pages = append(d.pages, types.Ref{})
	copy(d.pages[to+1:], d.pages[to:])
	d.pages[to] = ref

	if err := d.syncKids(); err != nil {
		return err
	}
	if d.verbose {
		log.Printf("document: moved page %s from %d to %d", ref, from, to)
	}
	return nil
}

// syncKids writes the current flat page list back to the root /Kids array
// and refreshes /Count, after flattenPages has already run.
func (d *Document) syncKids() error {
	rootVal, err := d.registry.Mutate(d.pagesRootRef)
	if err != nil {
		return err
	}
	rootDict, ok := rootVal.Dict()
	if !ok {
		return types.NewPDFError(types.ErrCodeInvalidObject, "pages root is not a dictionary")
	}
	kids := make([]types.Value, len(d.pages))
	for i, ref := range d.pages {
		kids[i] = types.RefValue(ref)
	}
	rootDict.Set("Kids", types.Array(kids))
	rootDict.Set("Count", types.Int(int64(len(kids))))
	d.registry.Replace(d.pagesRootRef, types.DictValue(rootDict))
	return nil
}

// RotatePage adds angle degrees (must be a multiple of 90) to the page at
// index's current /Rotate value, normalized into [0, 360). Out-of-range
// indices are a range error.
func (d *Document) RotatePage(index int, angle int) error {
	if angle%90 != 0 {
		return types.NewPDFErrorf(types.ErrCodeRangeError, "rotation angle must be a multiple of 90, got %d", angle)
	}
	if index < 0 || index >= len(d.pages) {
		return types.NewPDFErrorf(types.ErrCodeRangeError, "rotate index %d out of range [0, %d)", index, len(d.pages))
	}

	ref := d.pages[index]
	v, err := d.registry.Mutate(ref)
	if err != nil {
		return err
	}
	dict, ok := v.Dict()
	if !ok {
		return types.NewPDFErrorf(types.ErrCodeInvalidObject, "page %s is not a dictionary", ref)
	}

	current := int64(0)
	if rv, ok := dict.Get("Rotate"); ok {
		if i, ok := rv.Int(); ok {
			current = i
		}
	}
	next := (current + int64(angle)) % 360
	if next < 0 {
		next += 360
	}
	dict.Set("Rotate", types.Int(next))
	d.registry.Replace(ref, types.DictValue(dict))

	if d.verbose {
		log.Printf("document: rotated page %s at index %d from %d to %d degrees", ref, index, current, next)
	}
	return nil
}

// RotateAllPages applies RotatePage's rotation to every page in order.
func (d *Document) RotateAllPages(angle int) error {
	for i := range d.pages {
		if err := d.RotatePage(i, angle); err != nil {
			return err
		}
	}
	return nil
}
