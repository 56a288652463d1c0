package schema

import (
	"github.com/commontoolsinc/labs-sub005/entity"
	"github.com/commontoolsinc/labs-sub005/util/verbose"
)

// Rebase rewrites a selector when the cursor at docPath jumps to targetPath
// (through a link, same document or not). Exactly three cases:
//
//  1. docPath is a strict prefix of the selector path: the leftover tail
//     follows the jump; the schema context is untouched.
//  2. The selector path is a prefix of docPath (equality included): the
//     schema context is narrowed through the segments already descended.
//  3. The paths diverge: conservative empty selector under schema false,
//     which materializes to nothing.
func Rebase(sel Selector, docPath, targetPath entity.Path) Selector {
	switch {
	case sel.Path.HasPrefix(docPath) && len(docPath) < len(sel.Path):
		leftover := sel.Path[len(docPath):]
		return Selector{Path: targetPath.Extend(leftover), Context: sel.Context}
	case docPath.HasPrefix(sel.Path):
		var ctx *Context
		if sel.Context != nil {
			ctx = sel.Context.At(docPath[len(sel.Path):])
		}
		return Selector{Path: targetPath.Clone(), Context: ctx}
	default:
		verbose.Warn("selector path %s diverges from document path %s", sel.Path, docPath)
		root := falseSchema
		if sel.Context != nil {
			root = sel.Context.Root
		}
		return Selector{Context: NewContext(falseSchema, root)}
	}
}
