package mir

// recvMode is how a method takes its receiver.
type recvMode uint8

const (
	recvShared recvMode = iota
	recvUnique
	recvValue
)

type methodInfo struct {
	recv   recvMode
	result ValueKind
	// tiesRecv makes the result hold the receiver's loans. For recvValue
	// with resultFromRecv the result also inherits the receiver's kind.
	tiesRecv       bool
	resultFromRecv bool
}

// builtinMethods models the standard collection and iterator methods the
// analyzer meets most often.
var builtinMethods = map[string]methodInfo{
	// &mut self
	"push":          {recv: recvUnique, result: KindCopy},
	"push_str":      {recv: recvUnique, result: KindCopy},
	"pop":           {recv: recvUnique, result: KindOwned},
	"insert":        {recv: recvUnique, result: KindOwned},
	"remove":        {recv: recvUnique, result: KindOwned},
	"clear":         {recv: recvUnique, result: KindCopy},
	"truncate":      {recv: recvUnique, result: KindCopy},
	"sort":          {recv: recvUnique, result: KindCopy},
	"sort_unstable": {recv: recvUnique, result: KindCopy},
	"dedup":         {recv: recvUnique, result: KindCopy},
	"reverse":       {recv: recvUnique, result: KindCopy},
	"retain":        {recv: recvUnique, result: KindCopy},
	"extend":        {recv: recvUnique, result: KindCopy},
	"append":        {recv: recvUnique, result: KindCopy},
	"swap":          {recv: recvUnique, result: KindCopy},
	"iter_mut":      {recv: recvUnique, result: KindUniqueRef, tiesRecv: true},
	"get_mut":       {recv: recvUnique, result: KindUniqueRef, tiesRecv: true},
	"first_mut":     {recv: recvUnique, result: KindUniqueRef, tiesRecv: true},
	"last_mut":      {recv: recvUnique, result: KindUniqueRef, tiesRecv: true},
	"as_mut_slice":  {recv: recvUnique, result: KindUniqueRef, tiesRecv: true},
	"drain":         {recv: recvUnique, result: KindOwned, tiesRecv: true},
	"next":          {recv: recvUnique, result: KindSharedRef, tiesRecv: true},

	// &self
	"len":          {recv: recvShared, result: KindCopy},
	"is_empty":     {recv: recvShared, result: KindCopy},
	"contains":     {recv: recvShared, result: KindCopy},
	"starts_with":  {recv: recvShared, result: KindCopy},
	"ends_with":    {recv: recvShared, result: KindCopy},
	"capacity":     {recv: recvShared, result: KindCopy},
	"iter":         {recv: recvShared, result: KindSharedRef, tiesRecv: true},
	"get":          {recv: recvShared, result: KindSharedRef, tiesRecv: true},
	"first":        {recv: recvShared, result: KindSharedRef, tiesRecv: true},
	"last":         {recv: recvShared, result: KindSharedRef, tiesRecv: true},
	"as_str":       {recv: recvShared, result: KindSharedRef, tiesRecv: true},
	"as_slice":     {recv: recvShared, result: KindSharedRef, tiesRecv: true},
	"as_ref":       {recv: recvShared, result: KindSharedRef, tiesRecv: true},
	"chars":        {recv: recvShared, result: KindSharedRef, tiesRecv: true},
	"bytes":        {recv: recvShared, result: KindSharedRef, tiesRecv: true},
	"lines":        {recv: recvShared, result: KindSharedRef, tiesRecv: true},
	"split":        {recv: recvShared, result: KindSharedRef, tiesRecv: true},
	"trim":         {recv: recvShared, result: KindSharedRef, tiesRecv: true},
	"keys":         {recv: recvShared, result: KindSharedRef, tiesRecv: true},
	"values":       {recv: recvShared, result: KindSharedRef, tiesRecv: true},
	"to_string":    {recv: recvShared, result: KindOwned},
	"to_owned":     {recv: recvShared, result: KindOwned},
	"to_vec":       {recv: recvShared, result: KindOwned},
	"clone":        {recv: recvShared, result: KindOwned},
	"to_uppercase": {recv: recvShared, result: KindOwned},
	"to_lowercase": {recv: recvShared, result: KindOwned},

	// self
	"into_iter": {recv: recvValue, tiesRecv: true, resultFromRecv: true},
	"map":       {recv: recvValue, tiesRecv: true, resultFromRecv: true},
	"filter":    {recv: recvValue, tiesRecv: true, resultFromRecv: true},
	"enumerate": {recv: recvValue, tiesRecv: true, resultFromRecv: true},
	"zip":       {recv: recvValue, tiesRecv: true, resultFromRecv: true},
	"rev":       {recv: recvValue, tiesRecv: true, resultFromRecv: true},
	"skip":      {recv: recvValue, tiesRecv: true, resultFromRecv: true},
	"take":      {recv: recvValue, tiesRecv: true, resultFromRecv: true},
	"chain":     {recv: recvValue, tiesRecv: true, resultFromRecv: true},
	"peekable":  {recv: recvValue, tiesRecv: true, resultFromRecv: true},
	"step_by":   {recv: recvValue, tiesRecv: true, resultFromRecv: true},
	"unwrap":    {recv: recvValue, tiesRecv: true, resultFromRecv: true},
	"expect":    {recv: recvValue, tiesRecv: true, resultFromRecv: true},
	"unwrap_or": {recv: recvValue, tiesRecv: true, resultFromRecv: true},
	"cloned":    {recv: recvValue, result: KindOwned},
	"copied":    {recv: recvValue, result: KindCopy},
	"collect":   {recv: recvValue, result: KindOwned, tiesRecv: true},
	"sum":       {recv: recvValue, result: KindCopy},
	"product":   {recv: recvValue, result: KindCopy},
	"count":     {recv: recvValue, result: KindCopy},
	"fold":      {recv: recvValue, result: KindOwned},
	"max":       {recv: recvValue, result: KindCopy},
	"min":       {recv: recvValue, result: KindCopy},
}

// unknownMethod is used for methods neither declared nor built in: the
// receiver is borrowed shared and the result holds no loans of it.
var unknownMethod = methodInfo{recv: recvShared, result: KindOwned}
