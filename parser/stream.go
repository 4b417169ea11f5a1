package parser

import "github.com/benedoc-inc/pdfcore/types"

// DecodeStream runs stm's full /Filter (+ /DecodeParms) pipeline against its
// Raw payload and returns the fully decoded bytes. It caches the result on
// stm so repeated calls are free.
func DecodeStream(stm *types.Stream) ([]byte, error) {
	if cached, ok := stm.Decoded(); ok {
		return cached, nil
	}
	filterVal, hasFilter := stm.Dict.Get("Filter")
	if !hasFilter {
		stm.SetDecoded(stm.Raw)
		return stm.Raw, nil
	}
	parmsVal, _ := stm.Dict.Get("DecodeParms")
	names, parmsList := filterChain(filterVal, parmsVal)

	data := stm.Raw
	for i, name := range names {
		var fp *FilterParms
		if i < len(parmsList) {
			fp = parmsList[i]
		}
		decoded, err := DecodeFilter(data, name, fp)
		if err != nil {
			return nil, err
		}
		data = decoded
	}
	stm.SetDecoded(data)
	return data, nil
}

// FilterChain resolves a stream dictionary's /Filter (+ /DecodeParms) into
// parallel slices of filter names and parsed parameters, handling both the
// single-filter and filter-array forms.
func FilterChain(filterVal, parmsVal types.Value) ([]string, []*FilterParms) {
	return filterChain(filterVal, parmsVal)
}

func filterChain(filterVal, parmsVal types.Value) ([]string, []*FilterParms) {
	var names []string
	if arr, ok := filterVal.Array(); ok {
		for _, v := range arr {
			if n, ok := v.Name(); ok {
				names = append(names, n)
			}
		}
	} else if n, ok := filterVal.Name(); ok {
		names = append(names, n)
	}

	var parmsList []*FilterParms
	if arr, ok := parmsVal.Array(); ok {
		for _, v := range arr {
			parmsList = append(parmsList, parmsFromDict(v))
		}
	} else {
		parmsList = append(parmsList, parmsFromDict(parmsVal))
	}
	return names, parmsList
}

func parmsFromDict(v types.Value) *FilterParms {
	d, ok := v.Dict()
	if !ok {
		return nil
	}
	fp := &FilterParms{EarlyChange: 1}
	if ev, ok := d.Get("EarlyChange"); ok {
		if n, ok2 := ev.Int(); ok2 {
			fp.EarlyChange = int(n)
		}
	}
	if pv, ok := d.Get("Predictor"); ok {
		if n, ok2 := pv.Int(); ok2 {
			fp.Predictor = int(n)
		}
	}
	if cv, ok := d.Get("Colors"); ok {
		if n, ok2 := cv.Int(); ok2 {
			fp.Colors = int(n)
		}
	}
	if bv, ok := d.Get("BitsPerComponent"); ok {
		if n, ok2 := bv.Int(); ok2 {
			fp.BitsPerComponent = int(n)
		}
	}
	if colv, ok := d.Get("Columns"); ok {
		if n, ok2 := colv.Int(); ok2 {
			fp.Columns = int(n)
		}
	}
	return fp
}
