package facade

import (
	"arx/internal/document"
)

// Storage tags. The vault archive always exists; the rest depend on the
// composition.
const (
	StorageVault   = "vault"
	StorageHome    = "home"
	StorageMail    = "mail"
	StoragePool    = "pool"
	StorageRouting = "routing"
	StorageFTP     = "ftp"
)

// compositionKey selects a composition by what kind of entity owns it and
// whether it serves a network or consumes one.
type compositionKey struct {
	entity document.EntityKind
	server bool
}

// composition is one row of the lookup table: the tag stamped into the
// archive metadata and the extra storages set up alongside the vault.
type composition struct {
	tag      string
	storages []string
}

var serverStorages = []string{StorageMail, StoragePool, StorageRouting, StorageFTP}
var clientStorages = []string{StorageHome}

// compositions is the whole facade type system. Adding an entity kind or a
// side means adding a row here, nothing else.
var compositions = map[compositionKey]composition{
	{document.EntityPerson, false}:   {tag: "person.client", storages: clientStorages},
	{document.EntityPerson, true}:    {tag: "person.server", storages: serverStorages},
	{document.EntityMinistry, false}: {tag: "ministry.client", storages: clientStorages},
	{document.EntityMinistry, true}:  {tag: "ministry.server", storages: serverStorages},
	{document.EntityChurch, false}:   {tag: "church.client", storages: clientStorages},
	{document.EntityChurch, true}:    {tag: "church.server", storages: serverStorages},
}

// byTag resolves a composition from the tag a stored archive carries.
func byTag(tag string) (composition, bool) {
	for _, c := range compositions {
		if c.tag == tag {
			return c, true
		}
	}
	return composition{}, false
}
