package bridge

import "github.com/vango-dev/editstream/pkg/protocol"

func defaultTranslators() map[Category]Translator {
	return map[Category]Translator{
		CategoryKeyboard:  translateKeyboard,
		CategoryPointer:   translatePointer,
		CategoryWheel:     translateWheel,
		CategoryForm:      translateForm,
		CategoryFocus:     translateFocus,
		CategoryScroll:    translateScroll,
		CategoryClipboard: translateClipboard,
	}
}

func modifiers(f protocol.Fields, m ModifierSource) {
	f["altKey"] = m.AltKey()
	f["ctrlKey"] = m.CtrlKey()
	f["metaKey"] = m.MetaKey()
	f["shiftKey"] = m.ShiftKey()
}

func translateKeyboard(native NativeEvent, _ ResolveFunc) (protocol.Fields, error) {
	k, err := As[KeyboardSource](native)
	if err != nil {
		return nil, err
	}
	f := protocol.Fields{
		"key":    k.Key(),
		"code":   k.Code(),
		"repeat": k.Repeat(),
	}
	modifiers(f, k)
	return f, nil
}

func translatePointer(native NativeEvent, _ ResolveFunc) (protocol.Fields, error) {
	p, err := As[PointerSource](native)
	if err != nil {
		return nil, err
	}
	f := protocol.Fields{
		"clientX": p.ClientX(),
		"clientY": p.ClientY(),
		"button":  int64(p.Button()),
	}
	modifiers(f, p)
	return f, nil
}

func translateWheel(native NativeEvent, _ ResolveFunc) (protocol.Fields, error) {
	w, err := As[WheelSource](native)
	if err != nil {
		return nil, err
	}
	return protocol.Fields{
		"deltaX":    w.DeltaX(),
		"deltaY":    w.DeltaY(),
		"deltaMode": int64(w.DeltaMode()),
	}, nil
}

// Submit and reset carry no value; input and change must.
func translateForm(native NativeEvent, _ ResolveFunc) (protocol.Fields, error) {
	fs, err := As[FormSource](native)
	if err != nil {
		switch native.Type() {
		case "submit", "reset":
			return nil, nil
		}
		return nil, err
	}
	return protocol.Fields{
		"value":   fs.Value(),
		"checked": fs.Checked(),
	}, nil
}

func translateFocus(native NativeEvent, resolve ResolveFunc) (protocol.Fields, error) {
	fs, err := As[FocusSource](native)
	if err != nil {
		return nil, err
	}
	if rt := fs.RelatedTarget(); rt != nil {
		if id, ok := resolve(rt); ok {
			return protocol.Fields{"relatedTarget": int64(id)}, nil
		}
	}
	return nil, nil
}

func translateScroll(native NativeEvent, _ ResolveFunc) (protocol.Fields, error) {
	s, err := As[ScrollSource](native)
	if err != nil {
		return nil, err
	}
	return protocol.Fields{
		"scrollTop":  s.ScrollTop(),
		"scrollLeft": s.ScrollLeft(),
	}, nil
}

func translateClipboard(native NativeEvent, _ ResolveFunc) (protocol.Fields, error) {
	if c, err := As[ClipboardSource](native); err == nil {
		return protocol.Fields{"text": c.ClipboardText()}, nil
	}
	return nil, nil
}
