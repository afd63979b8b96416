package controllers

import (
    "bytes"
    "encoding/csv"
    "errors"
    "fmt"
    "io"
    "net/http"
    "sort"
    "strings"

    "github.com/gin-gonic/gin"
    log "github.com/sirupsen/logrus"

    "github.com/zaqqye/placement_backend/internal/accounts"
    "github.com/zaqqye/placement_backend/internal/apperr"
    "github.com/zaqqye/placement_backend/internal/scope"
)

type AdminController struct {
    Accounts *accounts.Service
    Log      log.FieldLogger
}

func (a *AdminController) CreateCollege(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    var req accounts.CollegeInput
    if err := c.ShouldBindJSON(&req); err != nil {
        badRequest(c, err)
        return
    }
    college, admin, err := a.Accounts.CreateCollege(c.Request.Context(), actor, req)
    if err != nil {
        respondError(c, a.Log, err)
        return
    }
    c.JSON(http.StatusCreated, gin.H{"college": college, "admin": admin})
}

func (a *AdminController) ListColleges(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    colleges, err := a.Accounts.ListColleges(c.Request.Context(), actor)
    if err != nil {
        respondError(c, a.Log, err)
        return
    }
    c.JSON(http.StatusOK, gin.H{"data": colleges})
}

type collegeStatusRequest struct {
    Status string `json:"status" binding:"required"`
}

func (a *AdminController) SetCollegeStatus(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    id, ok := pathID(c, "id")
    if !ok {
        return
    }
    var req collegeStatusRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        badRequest(c, err)
        return
    }
    if err := a.Accounts.SetCollegeStatus(c.Request.Context(), actor, id, strings.ToLower(req.Status)); err != nil {
        respondError(c, a.Log, err)
        return
    }
    c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

func (a *AdminController) DeleteCollege(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    id, ok := pathID(c, "id")
    if !ok {
        return
    }
    if err := a.Accounts.DeleteCollege(c.Request.Context(), actor, id); err != nil {
        respondError(c, a.Log, err)
        return
    }
    c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (a *AdminController) CreateUser(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    var req accounts.UserInput
    if err := c.ShouldBindJSON(&req); err != nil {
        badRequest(c, err)
        return
    }
    u, err := a.Accounts.CreateUser(c.Request.Context(), actor, req)
    if err != nil {
        respondError(c, a.Log, err)
        return
    }
    c.JSON(http.StatusCreated, u)
}

func (a *AdminController) ListUsers(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    role := strings.TrimSpace(strings.ToLower(c.Query("role")))
    if role != "" && !scope.IsValidRole(role) {
        respondError(c, a.Log, apperr.Invalid("invalid role", map[string]string{"role": "unknown role"}))
        return
    }
    users, err := a.Accounts.ListUsers(c.Request.Context(), actor, role)
    if err != nil {
        respondError(c, a.Log, err)
        return
    }
    c.JSON(http.StatusOK, gin.H{"data": users, "meta": gin.H{"total": len(users), "role": role}})
}

type userImportError struct {
    Row   int    `json:"row"`
    Email string `json:"email,omitempty"`
    Error string `json:"error"`
}

func parseBoolDefaultTrue(val string) (bool, bool) {
    if val == "" {
        return true, false
    }
    switch strings.ToLower(strings.TrimSpace(val)) {
    case "true", "1", "yes", "y", "active":
        return true, true
    case "false", "0", "no", "n", "inactive":
        return false, true
    default:
        return true, false
    }
}

// ImportUsers bulk-creates accounts from a CSV upload. Header columns
// (case-insensitive): full_name, email, password, department, role
// (optional, default student), active (optional). The super operator
// passes ?college_id=.
func (a *AdminController) ImportUsers(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    if err := c.Request.ParseMultipartForm(10 << 20); err != nil {
        badRequest(c, fmt.Errorf("failed to parse form"))
        return
    }
    file, fileHeader, err := c.Request.FormFile("file")
    if err != nil {
        badRequest(c, fmt.Errorf("file is required"))
        return
    }
    defer file.Close()

    if fileHeader == nil || !strings.HasSuffix(strings.ToLower(strings.TrimSpace(fileHeader.Filename)), ".csv") {
        badRequest(c, fmt.Errorf("only .csv files are allowed"))
        return
    }
    data, err := io.ReadAll(file)
    if err != nil || len(bytes.TrimSpace(data)) == 0 {
        badRequest(c, fmt.Errorf("file is empty or unreadable"))
        return
    }

    rows, err := newImportReader(data, "full_name", "email", "password", "department")
    if err != nil {
        badRequest(c, err)
        return
    }

    var (
        totalRows   int
        createdRows int
        failures    []userImportError
    )
    collegeID := strings.TrimSpace(c.Query("college_id"))
    for {
        rec, err := rows.next()
        if err == io.EOF {
            break
        }
        if err != nil {
            failures = append(failures, userImportError{Row: rows.line, Error: fmt.Sprintf("failed to read row: %v", err)})
            continue
        }
        totalRows++

        active, _ := parseBoolDefaultTrue(rec.get("active"))
        email := strings.ToLower(rec.get("email"))
        _, err = a.Accounts.CreateUser(c.Request.Context(), actor, accounts.UserInput{
            CollegeID:  collegeID,
            Role:       strings.ToLower(rec.get("role")),
            Department: rec.get("department"),
            FullName:   rec.get("full_name"),
            Email:      email,
            Password:   rec.get("password"),
            Active:     &active,
        })
        if err != nil {
            failures = append(failures, userImportError{Row: rows.line, Email: email, Error: importErrorText(err)})
            continue
        }
        createdRows++
    }

    if a.Log != nil {
        a.Log.WithFields(log.Fields{"actor_id": actor.ID(), "rows": totalRows, "created": createdRows}).Info("user import finished")
    }
    status := http.StatusOK
    if createdRows == 0 && totalRows > 0 {
        status = http.StatusUnprocessableEntity
    }
    c.JSON(status, gin.H{
        "total":   totalRows,
        "created": createdRows,
        "failed":  len(failures),
        "errors":  failures,
    })
}

func importErrorText(err error) string {
    var ae *apperr.Error
    if !errors.As(err, &ae) || len(ae.Fields) == 0 {
        return err.Error()
    }
    keys := make([]string, 0, len(ae.Fields))
    for k := range ae.Fields {
        keys = append(keys, k)
    }
    sort.Strings(keys)
    parts := make([]string, 0, len(keys))
    for _, k := range keys {
        parts = append(parts, k+" "+ae.Fields[k])
    }
    return ae.Message + ": " + strings.Join(parts, "; ")
}

// importReader reads a header-keyed CSV export. Spreadsheet quirks are
// normalised: CRLF or bare CR line ends, a UTF-8 BOM, and ';' separators.
type importReader struct {
    reader *csv.Reader
    header map[string]int
    line   int
}

type importRecord struct {
    fields []string
    header map[string]int
}

func newImportReader(data []byte, required ...string) (*importReader, error) {
    data = bytes.ReplaceAll(data, []byte{'\r', '\n'}, []byte{'\n'})
    data = bytes.ReplaceAll(data, []byte{'\r'}, []byte{'\n'})
    data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

    r := csv.NewReader(bytes.NewReader(data))
    r.TrimLeadingSpace = true
    r.FieldsPerRecord = -1
    if first, _, _ := bytes.Cut(data, []byte{'\n'}); bytes.Contains(first, []byte{';'}) && !bytes.Contains(first, []byte{','}) {
        r.Comma = ';'
    }

    cols, err := r.Read()
    if err != nil {
        return nil, fmt.Errorf("failed to read header")
    }
    header := make(map[string]int, len(cols))
    for i, col := range cols {
        if key := strings.ToLower(strings.Trim(strings.TrimSpace(col), "\"'")); key != "" {
            header[key] = i
        }
    }
    for _, key := range required {
        if _, ok := header[key]; !ok {
            return nil, fmt.Errorf("missing header column: %s", key)
        }
    }
    return &importReader{reader: r, header: header, line: 1}, nil
}

// next returns io.EOF after the last row; line is the 1-based line of the
// row just read.
func (r *importReader) next() (importRecord, error) {
    fields, err := r.reader.Read()
    if err == io.EOF {
        return importRecord{}, err
    }
    r.line++
    if err != nil {
        return importRecord{}, err
    }
    return importRecord{fields: fields, header: r.header}, nil
}

func (rec importRecord) get(key string) string {
    i, ok := rec.header[key]
    if !ok || i >= len(rec.fields) {
        return ""
    }
    return strings.TrimSpace(rec.fields[i])
}
