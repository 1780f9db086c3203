package mir

import (
	"borrowck/internal/ast"
	"borrowck/internal/source"
)

// fnSig is what a call site needs to know about a declared function.
type fnSig struct {
	name   string
	owner  string
	self   ast.SelfKind
	params int // excluding self
	result ValueKind
	// ties[i] reports that the result may hold loans of argument i;
	// index 0 is the receiver for methods.
	ties []bool
}

type signatures struct {
	free map[string]*fnSig
	// associated functions keyed by "Type::name"
	assoc map[string]*fnSig
	// methods keyed by name; ambiguous names keep the first declaration
	methods map[string]*fnSig
}

var copyTypeNames = map[string]bool{
	"i8": true, "i16": true, "i32": true, "i64": true, "i128": true, "isize": true,
	"u8": true, "u16": true, "u32": true, "u64": true, "u128": true, "usize": true,
	"f32": true, "f64": true, "bool": true, "char": true,
}

func collectSignatures(b *ast.Builder, items []ast.ItemID) *signatures {
	sigs := &signatures{
		free:    make(map[string]*fnSig),
		assoc:   make(map[string]*fnSig),
		methods: make(map[string]*fnSig),
	}
	for _, itemID := range items {
		fn, ok := b.Items.Fn(itemID)
		if !ok {
			continue
		}
		sig := buildSignature(b, fn)
		switch {
		case sig.owner == "":
			if _, dup := sigs.free[sig.name]; !dup {
				sigs.free[sig.name] = sig
			}
		case sig.self == ast.SelfNone:
			sigs.assoc[sig.owner+"::"+sig.name] = sig
		default:
			if _, dup := sigs.methods[sig.name]; !dup {
				sigs.methods[sig.name] = sig
			}
		}
	}
	return sigs
}

func buildSignature(b *ast.Builder, fn *ast.FnItem) *fnSig {
	sig := &fnSig{
		name:   b.Name(fn.Name),
		owner:  b.Name(fn.Owner),
		self:   fn.Self,
		params: len(fn.Params),
		result: KindCopy,
	}
	if fn.Result.IsValid() {
		sig.result = kindFromType(b, fn.Result)
	}

	// lifetimes of the references each input carries
	var inputs [][]source.StringID
	var refInputs []bool
	if fn.Self != ast.SelfNone {
		if fn.Self.IsRef() {
			inputs = append(inputs, []source.StringID{fn.SelfLife})
			refInputs = append(refInputs, true)
		} else {
			inputs = append(inputs, nil)
			refInputs = append(refInputs, false)
		}
	}
	for _, p := range fn.Params {
		lts, hasRef := refLifetimes(b, p.Type)
		inputs = append(inputs, lts)
		refInputs = append(refInputs, hasRef)
	}
	sig.ties = make([]bool, len(inputs))

	if !fn.Result.IsValid() {
		return sig
	}
	resultLts, resultHasRef := refLifetimes(b, fn.Result)
	if !resultHasRef {
		return sig
	}

	named := make(map[source.StringID]bool)
	elided := false
	for _, lt := range resultLts {
		if lt == source.NoStringID {
			elided = true
		} else {
			named[lt] = true
		}
	}
	for i, lts := range inputs {
		for _, lt := range lts {
			if lt != source.NoStringID && named[lt] {
				sig.ties[i] = true
			}
		}
	}
	if !elided {
		return sig
	}

	// elision: a reference self wins, else the only reference input,
	// else every reference input
	if fn.Self.IsRef() {
		sig.ties[0] = true
		return sig
	}
	refCount, last := 0, -1
	for i, has := range refInputs {
		if has {
			refCount++
			last = i
		}
	}
	if refCount == 1 {
		sig.ties[last] = true
		return sig
	}
	for i, has := range refInputs {
		if has {
			sig.ties[i] = true
		}
	}
	return sig
}

// refLifetimes lists the lifetimes of every reference inside a type.
// Elided lifetimes appear as NoStringID.
func refLifetimes(b *ast.Builder, id ast.TypeID) (lts []source.StringID, hasRef bool) {
	var walk func(ast.TypeID)
	walk = func(id ast.TypeID) {
		ty := b.Types.Get(id)
		if ty == nil {
			return
		}
		switch ty.Kind {
		case ast.TypeRef:
			lts = append(lts, ty.Lifetime)
			hasRef = true
			walk(ty.Elem)
		case ast.TypeSlice, ast.TypeArray:
			walk(ty.Elem)
		default:
			for _, arg := range ty.Args {
				walk(arg)
			}
		}
	}
	walk(id)
	return lts, hasRef
}

// kindFromType classifies a type annotation. Generic parameters and user
// types are Owned.
func kindFromType(b *ast.Builder, id ast.TypeID) ValueKind {
	ty := b.Types.Get(id)
	if ty == nil {
		return KindOwned
	}
	switch ty.Kind {
	case ast.TypeRef:
		if ty.Mutable {
			return KindUniqueRef
		}
		return KindSharedRef
	case ast.TypePath:
		if copyTypeNames[b.Name(ty.Name)] {
			return KindCopy
		}
		return KindOwned
	case ast.TypeTuple:
		for _, elem := range ty.Args {
			if kindFromType(b, elem) != KindCopy {
				return KindOwned
			}
		}
		return KindCopy
	case ast.TypeArray:
		if kindFromType(b, ty.Elem) == KindCopy {
			return KindCopy
		}
		return KindOwned
	default:
		return KindOwned
	}
}

func (l *funcLowerer) kindFromType(id ast.TypeID) ValueKind {
	return kindFromType(l.b, id)
}

// undeclaredSig ties the result to every argument.
func undeclaredSig(n int) CallSig {
	ties := make([]bool, n)
	for i := range ties {
		ties[i] = true
	}
	return CallSig{Ties: ties}
}
