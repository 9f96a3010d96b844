package types

import "testing"

func TestIsUnknownAndIsResolved(t *testing.T) {
	if !UnknownType().IsUnknown() {
		t.Fatal("expected UnknownType to be IsUnknown")
	}
	if UnknownType().IsResolved() {
		t.Fatal("expected UnknownType to not be resolved")
	}
	if !ConflictType().IsConflict() {
		t.Fatal("expected ConflictType to be IsConflict")
	}
	if !Simple(Int).IsResolved() {
		t.Fatal("expected Simple(Int) to be resolved")
	}
}

func TestEqualSimple(t *testing.T) {
	if !Simple(Int).Equal(Simple(Int)) {
		t.Fatal("expected Int == Int")
	}
	if Simple(Int).Equal(Simple(Bool)) {
		t.Fatal("expected Int != Bool")
	}
}

func TestEqualFunctionComparesParamsAndRet(t *testing.T) {
	a := Function([]DataType{Simple(Int)}, Simple(Bool), false)
	b := Function([]DataType{Simple(Int)}, Simple(Bool), false)
	c := Function([]DataType{Simple(Float)}, Simple(Bool), false)
	extern := Function([]DataType{Simple(Int)}, Simple(Bool), true)

	if !a.Equal(b) {
		t.Fatal("expected identical function types to be equal")
	}
	if a.Equal(c) {
		t.Fatal("expected a different param type to break equality")
	}
	if a.Equal(extern) {
		t.Fatal("expected IsExtern to break equality")
	}
}

func TestEqualStructIsNominal(t *testing.T) {
	a := Struct("Point", []StructField{{Name: "x", Type: Simple(Int), Offset: InvalidOffset}})
	b := Struct("Point", []StructField{{Name: "x", Type: Simple(Float), Offset: InvalidOffset}})
	c := Struct("Vector", []StructField{{Name: "x", Type: Simple(Int), Offset: InvalidOffset}})

	if !a.Equal(b) {
		t.Fatal("expected same-name structs to be equal regardless of field types (nominal typing)")
	}
	if a.Equal(c) {
		t.Fatal("expected differently-named structs to be unequal")
	}
}

func TestSizeSimpleAndFunctionIsOneWord(t *testing.T) {
	if Simple(Int).Size() != 1 {
		t.Fatal("expected a simple type to occupy one word")
	}
	fn := Function(nil, Simple(Void), false)
	if fn.Size() != 1 {
		t.Fatal("expected a function type to occupy one word")
	}
}

func TestSizeStructSumsFields(t *testing.T) {
	s := Struct("Point", []StructField{
		{Name: "x", Type: Simple(Int), Offset: InvalidOffset},
		{Name: "y", Type: Simple(Int), Offset: InvalidOffset},
	})
	if s.Size() != 2 {
		t.Fatalf("expected a 2-field struct to have size 2, got %d", s.Size())
	}
}

func TestUpdateOffsetsAssignsRunningSums(t *testing.T) {
	s := Struct("Point", []StructField{
		{Name: "x", Type: Simple(Int), Offset: InvalidOffset},
		{Name: "y", Type: Simple(Int), Offset: InvalidOffset},
	})
	if ok := s.UpdateOffsets(); !ok {
		t.Fatal("expected the first UpdateOffsets call to succeed")
	}
	if s.Fields[0].Offset != 0 || s.Fields[1].Offset != 1 {
		t.Fatalf("expected offsets 0,1, got %d,%d", s.Fields[0].Offset, s.Fields[1].Offset)
	}
}

func TestUpdateOffsetsTwiceReportsFalse(t *testing.T) {
	s := Struct("Point", []StructField{
		{Name: "x", Type: Simple(Int), Offset: InvalidOffset},
	})
	s.UpdateOffsets()
	if ok := s.UpdateOffsets(); ok {
		t.Fatal("expected a second UpdateOffsets call to report false")
	}
}

func TestFieldLookup(t *testing.T) {
	s := Struct("Point", []StructField{{Name: "x", Type: Simple(Int), Offset: 0}})
	if _, ok := s.Field("x"); !ok {
		t.Fatal("expected to find field x")
	}
	if _, ok := s.Field("z"); ok {
		t.Fatal("expected not to find field z")
	}
}

func TestStringRendersFunctionSignature(t *testing.T) {
	fn := Function([]DataType{Simple(Int), Simple(Bool)}, Simple(Void), false)
	if got, want := fn.String(), "(int,bool)->void"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	extern := Function(nil, Simple(Int), true)
	if got, want := extern.String(), "extern ()->int"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestLookupPrimitive(t *testing.T) {
	if p, ok := LookupPrimitive("int"); !ok || p != Int {
		t.Fatalf("expected int to resolve to Int, got %v, %v", p, ok)
	}
	if _, ok := LookupPrimitive("notatype"); ok {
		t.Fatal("expected an unknown name to fail lookup")
	}
}
