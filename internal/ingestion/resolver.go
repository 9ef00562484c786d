package ingestion

import (
	"path"
	"strings"

	"github.com/rohankatakam/codeimpact/internal/models"
	"github.com/rohankatakam/codeimpact/internal/treesitter"
)

// KindResolution counts resolution outcomes for one relationship kind
type KindResolution struct {
	Resolved   int `json:"resolved" yaml:"resolved"`
	Unresolved int `json:"unresolved" yaml:"unresolved"`
}

// ResolutionStats reports how many symbolic targets were bound to entities
type ResolutionStats struct {
	Total      int                                         `json:"total" yaml:"total"`
	Resolved   int                                         `json:"resolved" yaml:"resolved"`
	Unresolved int                                         `json:"unresolved" yaml:"unresolved"`
	ByKind     map[models.RelationshipKind]*KindResolution `json:"by_kind" yaml:"by_kind"`
}

// selfReceivers refer to the enclosing type
var selfReceivers = map[string]bool{
	"self":  true,
	"cls":   true,
	"this":  true,
	"super": true,
}

type symbolIndex struct {
	entities []models.CodeEntity
	byID     map[string]int

	exact   map[string][]int // <unit>::<Outer>.<name>
	bare    map[string][]int // name of types and callables
	members map[string][]int // Type.method

	methodsByOwner map[string]map[string]int // type id -> method name -> entity
	modules        map[string][]string       // module key suffix -> unit paths
}

func newSymbolIndex(entities []models.CodeEntity) *symbolIndex {
	idx := &symbolIndex{
		entities:       entities,
		byID:           make(map[string]int, len(entities)),
		exact:          make(map[string][]int),
		bare:           make(map[string][]int),
		members:        make(map[string][]int),
		methodsByOwner: make(map[string]map[string]int),
		modules:        make(map[string][]string),
	}

	for i, e := range entities {
		idx.byID[e.ID] = i
	}

	for i, e := range entities {
		switch e.Kind {
		case models.KindSourceUnit:
			idx.addModule(e.FilePath)
		case models.KindTypeDefinition, models.KindCallable:
			idx.exact[e.QualifiedName] = append(idx.exact[e.QualifiedName], i)
			idx.bare[e.Name] = append(idx.bare[e.Name], i)
		case models.KindMethod:
			idx.exact[e.QualifiedName] = append(idx.exact[e.QualifiedName], i)
			if owner, ok := idx.byID[e.OwnerID]; ok {
				key := entities[owner].Name + "." + e.Name
				idx.members[key] = append(idx.members[key], i)
				if idx.methodsByOwner[e.OwnerID] == nil {
					idx.methodsByOwner[e.OwnerID] = make(map[string]int)
				}
				if _, seen := idx.methodsByOwner[e.OwnerID][e.Name]; !seen {
					idx.methodsByOwner[e.OwnerID][e.Name] = i
				}
			}
		}
	}
	return idx
}

// addModule registers every path suffix of a unit's module key, so that
// pkg.mod finds src/pkg/mod.py and ./utils finds ui/utils/index.js
func (idx *symbolIndex) addModule(unitPath string) {
	key := strings.TrimSuffix(unitPath, path.Ext(unitPath))
	switch path.Base(key) {
	case "__init__", "index":
		key = path.Dir(key)
	}
	if key == "." || key == "" {
		return
	}

	parts := strings.Split(key, "/")
	for i := range parts {
		suffix := strings.Join(parts[i:], "/")
		idx.modules[suffix] = append(idx.modules[suffix], unitPath)
	}
}

// candidateRank orders candidates for one referrer: same unit, then same
// language family, then anything else
func candidateRank(e, from models.CodeEntity) int {
	switch {
	case e.FilePath == from.FilePath:
		return 2
	case from.Language != "" && languageFamily(e.Language) == languageFamily(from.Language):
		return 1
	default:
		return 0
	}
}

// languageFamily groups grammars that can reference each other's symbols
func languageFamily(lang string) string {
	switch lang {
	case treesitter.LangTypeScript, treesitter.LangTSX:
		return treesitter.LangJavaScript
	}
	return lang
}

// pick chooses the best ranked candidate for the referrer, breaking ties
// on the lexicographically smallest id
func (idx *symbolIndex) pick(candidates []int, from models.CodeEntity) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	best := ""
	bestRank := -1
	for _, c := range candidates {
		e := idx.entities[c]
		rank := candidateRank(e, from)
		if rank < bestRank || (rank == bestRank && e.ID >= best) {
			continue
		}
		best = e.ID
		bestRank = rank
	}
	return best, true
}

// ownerType walks owner links up to the nearest type definition
func (idx *symbolIndex) ownerType(entityID string) (models.CodeEntity, bool) {
	i, ok := idx.byID[entityID]
	for ok {
		e := idx.entities[i]
		if e.Kind == models.KindTypeDefinition {
			return e, true
		}
		i, ok = idx.byID[e.OwnerID]
	}
	return models.CodeEntity{}, false
}

// resolveSelf finds attr on the referrer's type, then on its direct bases
func (idx *symbolIndex) resolveSelf(source models.CodeEntity, receiver, attr string) (string, bool) {
	owner, ok := idx.ownerType(source.ID)
	if !ok {
		return "", false
	}
	if receiver != "super" {
		if m, ok := idx.methodsByOwner[owner.ID][attr]; ok {
			return idx.entities[m].ID, true
		}
	}
	for _, base := range owner.StringsAttribute(models.AttrBases) {
		baseName := base[strings.LastIndex(base, ".")+1:]
		for _, b := range idx.bare[baseName] {
			baseType := idx.entities[b]
			if baseType.Kind != models.KindTypeDefinition {
				continue
			}
			if m, ok := idx.methodsByOwner[baseType.ID][attr]; ok {
				return idx.entities[m].ID, true
			}
		}
	}
	return "", false
}

// moduleUnits maps a module reference to candidate unit paths
func (idx *symbolIndex) moduleUnits(module, fromPath string) []string {
	if module == "" {
		return nil
	}

	// JavaScript relative specifier: ./utils, ../lib/api
	if strings.HasPrefix(module, "./") || strings.HasPrefix(module, "../") {
		key := path.Join(path.Dir(fromPath), module)
		key = strings.TrimSuffix(key, path.Ext(key))
		return idx.modules[key]
	}

	// Python relative module: .sibling, ..pkg.mod
	if strings.HasPrefix(module, ".") {
		dots := len(module) - len(strings.TrimLeft(module, "."))
		dir := path.Dir(fromPath)
		for i := 1; i < dots; i++ {
			dir = path.Dir(dir)
		}
		rest := strings.ReplaceAll(module[dots:], ".", "/")
		key := path.Join(dir, rest)
		return idx.modules[key]
	}

	if strings.Contains(module, "/") {
		return idx.modules[module]
	}
	return idx.modules[strings.ReplaceAll(module, ".", "/")]
}

func splitTarget(target string) (receiver, attr string) {
	// leading dots of a relative import are not separators
	trimmed := strings.TrimLeft(target, ".")
	prefix := target[:len(target)-len(trimmed)]
	i := strings.LastIndex(trimmed, ".")
	if i < 0 {
		return prefix, trimmed
	}
	return prefix + trimmed[:i], trimmed[i+1:]
}

func lastTwo(target string) string {
	parts := strings.Split(target, ".")
	if len(parts) < 2 {
		return target
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

// resolve binds one symbolic target. Order: exact qualified name,
// self/this receivers, Type.method, module-qualified name, bare name.
func (idx *symbolIndex) resolve(source models.CodeEntity, target string) (string, bool) {
	if id, ok := idx.pick(idx.exact[target], source); ok {
		return id, true
	}

	receiver, attr := splitTarget(target)
	if attr == "" {
		return "", false
	}

	if selfReceivers[receiver] {
		return idx.resolveSelf(source, receiver, attr)
	}

	if receiver != "" {
		if id, ok := idx.pick(idx.members[lastTwo(target)], source); ok {
			return id, true
		}
		for _, unit := range idx.moduleUnits(receiver, source.FilePath) {
			if id, ok := idx.pick(idx.exact[unit+"::"+attr], source); ok {
				return id, true
			}
		}
	}

	return idx.pick(idx.bare[attr], source)
}

// Resolve replaces symbolic relationship targets with entity ids wherever a
// match exists, in place. It must run after every unit has been analyzed.
// Unresolved relationships are kept. Each callable and method gets an
// unresolved_call_targets attribute.
func Resolve(entities []models.CodeEntity, relationships []models.Relationship) ResolutionStats {
	idx := newSymbolIndex(entities)
	stats := ResolutionStats{ByKind: make(map[models.RelationshipKind]*KindResolution)}
	unresolvedCalls := make(map[string]int)

	for i := range relationships {
		rel := &relationships[i]
		if rel.Resolved {
			continue
		}
		stats.Total++
		kindStats := stats.ByKind[rel.Kind]
		if kindStats == nil {
			kindStats = &KindResolution{}
			stats.ByKind[rel.Kind] = kindStats
		}

		var source models.CodeEntity
		if s, ok := idx.byID[rel.SourceID]; ok {
			source = entities[s]
		}

		if id, ok := idx.resolve(source, rel.TargetID); ok {
			rel.TargetID = id
			rel.Resolved = true
			stats.Resolved++
			kindStats.Resolved++
			continue
		}

		stats.Unresolved++
		kindStats.Unresolved++
		if rel.Kind == models.RelInvokes {
			unresolvedCalls[rel.SourceID]++
		}
	}

	for i := range entities {
		switch entities[i].Kind {
		case models.KindCallable, models.KindMethod:
			entities[i].SetAttribute(models.AttrUnresolvedCallTargets, unresolvedCalls[entities[i].ID])
		}
	}

	return stats
}
