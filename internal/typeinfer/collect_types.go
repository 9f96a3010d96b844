package typeinfer

import "github.com/student/stackscript/internal/ast"
import "github.com/student/stackscript/internal/types"

// TypesMap maps a struct name to its (fully resolved, offset-assigned)
// DataType. It is populated by CollectTypes and consulted by
// ApplyTypeAnnotations whenever an annotation names a struct instead of a
// primitive.
type TypesMap map[string]types.DataType

// CollectTypes scans every DeclStruct in the program and adds a Struct
// DataType to the map for each one whose fields are all resolvable — either
// to a primitive, or to a struct name already present in the map (earlier
// struct declarations, or a struct whose own fields resolved on an earlier
// call to CollectTypes). A struct that references a not-yet-known struct
// name, or carries an invalid annotation, is left out; the caller re-runs
// CollectTypes on the next fixpoint iteration once more annotations have
// resolved.
//
// Newly added structs have their field offsets assigned exactly once via
// DataType.UpdateOffsets before being stored, satisfying the
// assign-once-never-shift invariant.
func CollectTypes(root *ast.Block, existing TypesMap) TypesMap {
	out := make(TypesMap, len(existing))
	for name, dt := range existing {
		out[name] = dt
	}

	ast.Walk(root, func(n ast.Node) {
		decl, ok := n.(*ast.DeclStruct)
		if !ok {
			return
		}
		if _, already := out[decl.Name.Name]; already {
			return
		}
		fields := make([]types.StructField, 0, len(decl.Fields))
		complete := true
		for _, fieldDecl := range decl.Fields {
			fieldType, resolved := resolveAnnotation(fieldDecl.Name.Annotation, out)
			if !resolved {
				complete = false
				break
			}
			fields = append(fields, types.StructField{
				Name:   fieldDecl.Name.Name,
				Type:   fieldType,
				Offset: types.InvalidOffset,
			})
		}
		if !complete {
			return
		}
		structType := types.Struct(decl.Name.Name, fields)
		structType.UpdateOffsets()
		out[decl.Name.Name] = structType
		decl.Name.SetDataType(types.Simple(types.StructTag))
	})

	return out
}

// resolveAnnotation resolves a ": <typename>" annotation string against the
// primitive keywords and the struct TypesMap. An empty annotation is not
// resolvable here (the caller treats "no annotation" differently from "bad
// annotation").
func resolveAnnotation(annotation string, known TypesMap) (types.DataType, bool) {
	if annotation == "" {
		return types.DataType{}, false
	}
	if p, ok := types.LookupPrimitive(annotation); ok {
		return types.Simple(p), true
	}
	if dt, ok := known[annotation]; ok {
		return dt, true
	}
	return types.DataType{}, false
}
