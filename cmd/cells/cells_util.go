package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"strings"

	"github.com/commontoolsinc/labs-sub005/cmd/cells/util"
	"github.com/commontoolsinc/labs-sub005/d"
	"github.com/commontoolsinc/labs-sub005/entity"
	"github.com/commontoolsinc/labs-sub005/schema"
	"github.com/commontoolsinc/labs-sub005/value"
)

// printValue pretty-prints v. Indenting only moves whitespace, so number
// literals and key order come out as stored.
func printValue(w io.Writer, v *value.Node) {
	buf := &bytes.Buffer{}
	d.Chk.NoError(json.Indent(buf, v.Encode(), "", "  "))
	buf.WriteByte('\n')
	_, err := io.Copy(w, buf)
	d.Chk.NoError(err)
}

// parseSelector builds the read scope from the --path and --schema flags. A
// --schema value beginning with @ names a file to read the schema from.
func parseSelector(pathFlag, schemaFlag string) schema.Selector {
	sel := schema.Selector{Path: entity.ParsePath(pathFlag)}
	if schemaFlag == "" {
		return sel
	}
	data := []byte(schemaFlag)
	if strings.HasPrefix(schemaFlag, "@") {
		var err error
		data, err = ioutil.ReadFile(schemaFlag[1:])
		util.CheckErrorNoUsage(err)
	}
	s, err := schema.Parse(data)
	if err != nil {
		util.CheckError(fmt.Errorf("bad --schema: %s", err))
	}
	sel.Context = schema.NewContext(s, nil)
	return sel
}
