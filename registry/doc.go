/*
Package registry maps stored item shapes to their key layout and decoders.

Index Map Registry:
Associates a Go item type with the key templates of the single-table design.
Macros in braces are replaced with the item's attribute of that name:

	registry.RegisterIndexMap[personItem](map[string]string{
	    "PK": "person#{id}",
	    "SK": "person",
	})

Type Registry:
Maps the EntityType attribute of a stored item to the function that decodes it,
so a scan over the shared table can tell persons from bookkeeping items:

	registry.RegisterType("person", func(item map[string]types.AttributeValue) (interface{}, error) {
	    return decodePerson(item)
	})

Both registries are safe for concurrent use and are normally populated in init().
*/
package registry
